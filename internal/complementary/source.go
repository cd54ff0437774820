package complementary

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mauv0809/analista/internal/config"
	"github.com/mauv0809/analista/internal/extract"
	"go.uber.org/zap"
)

// DefaultPageURL is the Fundamentus detail page; %s is the ticker.
const DefaultPageURL = "https://fundamentus.com.br/detalhes.php?papel=%s"

//go:embed schema.json
var schema []byte

// Schema returns the JSON schema of Info handed to the extraction model.
func Schema() json.RawMessage {
	return json.RawMessage(schema)
}

// Instruction tells the model which sections to fill.
const Instruction = `Extraia todas as informações da página de ações, preenchendo todos os campos possíveis.
Inclua:
- Informações básicas da ação
- Valor de mercado e da firma
- Oscilações
- Indicadores fundamentalistas
- Dados do Balanço Patrimonial
- Demonstrativos de Resultados

Certifique-se de incluir dados numéricos e textuais relevantes.
Use nomes claros nos campos extraídos, em especial indicadores_fundamentalistas.`

// URL builds the detail page address of ticker from template.
func URL(template, ticker string) string {
	if template == "" {
		template = DefaultPageURL
	}
	return fmt.Sprintf(template, strings.ToUpper(strings.TrimSpace(ticker)))
}

// Strategy builds the extraction strategy from configuration.
func Strategy(cfg config.ExtractionConfig) extract.Strategy {
	return extract.Strategy{
		Provider:    cfg.Provider,
		URLBase:     cfg.URLBase,
		APIToken:    cfg.APIKey,
		Schema:      Schema(),
		Instruction: Instruction,
		ChunkSize:   cfg.ChunkSize,
		MinWords:    cfg.MinWords,
		Temperature: cfg.Temperature,
	}
}

// Decode reads the engine output. Invalid JSON is an error. A value that is
// not a list, an empty list, and list elements that are error blocks or
// not objects all yield no records.
func Decode(raw string) ([]Info, error) {
	var value json.RawMessage
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decoding extraction result: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(value, &elements); err != nil {
		return nil, nil
	}

	infos := make([]Info, 0, len(elements))
	for _, el := range elements {
		el = bytes.TrimSpace(el)
		if !bytes.HasPrefix(el, []byte("{")) {
			continue
		}
		var marker struct {
			Error bool `json:"error"`
		}
		if err := json.Unmarshal(el, &marker); err != nil || marker.Error {
			continue
		}
		var info Info
		if err := json.Unmarshal(el, &info); err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Extractor runs one extraction and returns its raw JSON output.
type Extractor interface {
	Run(ctx context.Context, url string, s extract.Strategy) (string, error)
}

// Source fetches complementary records for a ticker.
type Source struct {
	extractor Extractor
	strategy  extract.Strategy
	pageURL   string
	logger    *zap.Logger
}

// NewSource creates a source backed by extractor.
func NewSource(extractor Extractor, cfg config.ExtractionConfig, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		extractor: extractor,
		strategy:  Strategy(cfg),
		pageURL:   cfg.PageURL,
		logger:    logger,
	}
}

// Fetch runs the extraction for ticker. Engine failures propagate; an
// unusable result yields no records.
func (s *Source) Fetch(ctx context.Context, ticker string) ([]Info, error) {
	url := URL(s.pageURL, ticker)
	raw, err := s.extractor.Run(ctx, url, s.strategy)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", url, err)
	}

	infos, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		s.logger.Warn("no complementary data extracted", zap.String("ticker", ticker))
	}
	return infos, nil
}
