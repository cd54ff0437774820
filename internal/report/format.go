// Package report renders market and complementary data as the plain-text
// reports embedded in the analysis prompt.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// Placeholder stands in for any absent value.
	Placeholder = "N/A"
	// NoData is the whole complementary report when nothing was extracted.
	NoData = "Nenhum dado disponível"
	// NoSummary replaces a missing business summary.
	NoSummary = "Sem informações disponíveis"
)

var periodLabels = map[string]string{
	"0m":  "Período Atual",
	"-1m": "1 Mês Atrás",
	"-2m": "2 Meses Atrás",
	"-3m": "3 Meses Atrás",
}

// PeriodLabel translates a recommendation period code. Unknown codes are
// returned unchanged.
func PeriodLabel(code string) string {
	if label, ok := periodLabels[code]; ok {
		return label
	}
	return code
}

// Humanize turns a field key into a label: separators become spaces and
// every word is title-cased.
func Humanize(key string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return cases.Title(language.BrazilianPortuguese).String(s)
}

// Acronym turns an indicator key into an upper-case label ("p_l" -> "P L").
func Acronym(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

// Currency renders v as "R$ 1,234.56". Strings are read in Brazilian
// notation (dots group thousands, comma marks decimals). Anything that does
// not parse is returned as-is; it never fails.
func Currency(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		normalized := strings.ReplaceAll(strings.TrimSpace(t), ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
		d, err := decimal.NewFromString(normalized)
		if err != nil {
			return t
		}
		return brl(d)
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return t.String()
		}
		return brl(d)
	case float64:
		return brl(decimal.NewFromFloat(t))
	case int:
		return brl(decimal.NewFromInt(int64(t)))
	case int64:
		return brl(decimal.NewFromInt(t))
	case decimal.Decimal:
		return brl(t)
	}
	return fmt.Sprint(v)
}

func brl(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return "R$ " + sign + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// number renders a float field with at least one fractional digit
// (40 -> "40.0", 38.5 -> "38.5").
func number(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func integer(n *int64) string {
	if n == nil {
		return Placeholder
	}
	return strconv.FormatInt(*n, 10)
}

func text(s *string) string {
	if s == nil {
		return Placeholder
	}
	return *s
}

// value renders a free-form section value.
func value(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool, int, int64, json.Number:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
