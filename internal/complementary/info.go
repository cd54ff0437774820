// Package complementary holds the fundamentals record extracted from the
// Fundamentus detail page and the strategy used to extract it.
package complementary

import (
	"bytes"
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Info is one extracted fundamentals record. Every field is optional.
type Info struct {
	Ticker      Field `json:"papel"`
	Quote       Field `json:"cotacao"`
	Type        Field `json:"tipo"`
	QuoteDate   Field `json:"data_ultima_cotacao"`
	Company     Field `json:"empresa"`
	Sector      Field `json:"setor"`
	Subsector   Field `json:"subsetor"`
	MarketValue Field `json:"valor_mercado"`
	FirmValue   Field `json:"valor_firma"`
	ShareCount  Field `json:"numero_acoes"`

	Oscillations    Section `json:"oscilacoes"`
	Indicators      Section `json:"indicadores_fundamentalistas"`
	BalanceSheet    Section `json:"balanco_patrimonial"`
	IncomeStatement Section `json:"demonstrativos_resultados"`
}

// Field is a scalar that may arrive as a JSON string, number, bool or null.
// Null and blank strings are absent.
type Field struct {
	value   string
	set     bool
	numeric bool
}

// NewField returns a present field.
func NewField(v string) Field {
	return Field{value: v, set: true}
}

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Field{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSpace(s)
		*f = Field{value: s, set: s != ""}
		return nil
	}
	// numbers, bools and anything else keep their literal text
	var n json.Number
	numeric := json.Unmarshal(b, &n) == nil
	*f = Field{value: string(b), set: true, numeric: numeric}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Present reports whether the field was extracted.
func (f Field) Present() bool {
	return f.set
}

// String returns the value, or "" when absent.
func (f Field) String() string {
	return f.value
}

// Number returns the value when it arrived as a JSON number.
func (f Field) Number() (json.Number, bool) {
	if !f.set || !f.numeric {
		return "", false
	}
	return json.Number(f.value), true
}

// Or returns the value, or placeholder when absent.
func (f Field) Or(placeholder string) string {
	if !f.set {
		return placeholder
	}
	return f.value
}

// Section is a free-form label to value mapping that keeps source order.
// Values are whatever JSON produced: string, float64, bool, nested maps.
type Section struct {
	entries *orderedmap.OrderedMap[string, any]
}

// NewSection builds a section from alternating key, value pairs.
func NewSection(pairs ...any) Section {
	s := Section{entries: orderedmap.New[string, any]()}
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			s.entries.Set(key, pairs[i+1])
		}
	}
	return s
}

// UnmarshalJSON accepts a JSON object. Anything else leaves the section
// empty instead of failing the whole record.
func (s *Section) UnmarshalJSON(b []byte) error {
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(b); err != nil {
		s.entries = nil
		return nil
	}
	s.entries = m
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	if s.entries == nil {
		return []byte("{}"), nil
	}
	return s.entries.MarshalJSON()
}

// Len returns the number of entries.
func (s Section) Len() int {
	if s.entries == nil {
		return 0
	}
	return s.entries.Len()
}

// Get returns the value stored under key.
func (s Section) Get(key string) (any, bool) {
	if s.entries == nil {
		return nil, false
	}
	return s.entries.Get(key)
}

// Each calls fn for every entry in source order.
func (s Section) Each(fn func(key string, value any)) {
	if s.entries == nil {
		return
	}
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}
