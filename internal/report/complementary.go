package report

import (
	"fmt"
	"strings"

	"github.com/mauv0809/analista/internal/complementary"
)

// incomePeriods lists the income statement keys looked up per period.
var incomePeriods = []struct {
	label string
	keys  []string
}{
	{"12 meses", []string{"receita_liq_ultimos_12_meses", "ebit_ultimos_12_meses", "lucro_liq_ultimos_12_meses"}},
	{"3 meses", []string{"receita_liq_ultimos_3_meses", "ebit_ultimos_3_meses", "lucro_liq_ultimos_3_meses"}},
}

// Complementary renders the first extracted record, or NoData when there
// is none.
func Complementary(infos []complementary.Info) string {
	if len(infos) == 0 {
		return NoData
	}
	info := infos[0]

	var b strings.Builder
	line := func(label, v string) {
		fmt.Fprintf(&b, "- %s: %s\n", label, v)
	}

	fmt.Fprintf(&b, "📊 Informações Complementares - %s\n", info.Ticker.Or("Ação"))

	b.WriteString("\n🏢 Detalhes da Empresa\n")
	line("Empresa", info.Company.Or(Placeholder))
	line("Tipo", info.Type.Or(Placeholder))
	line("Setor", info.Sector.Or(Placeholder))
	line("Subsetor", info.Subsector.Or(Placeholder))

	b.WriteString("\n💹 Cotação e Mercado\n")
	line("Cotação Atual", info.Quote.Or(Placeholder))
	line("Data Última Cotação", info.QuoteDate.Or(Placeholder))
	line("Valor de Mercado", fieldCurrency(info.MarketValue))
	line("Valor da Firma", fieldCurrency(info.FirmValue))
	line("Número de Ações", info.ShareCount.Or(Placeholder))

	b.WriteString("\n📈 Oscilações\n")
	info.Oscillations.Each(func(key string, v any) {
		line(Humanize(key), value(v))
	})

	b.WriteString("\n📊 Indicadores Fundamentalistas\n")
	info.Indicators.Each(func(key string, v any) {
		line(Acronym(key), value(v))
	})

	b.WriteString("\n💰 Balanço Patrimonial\n")
	info.BalanceSheet.Each(func(key string, v any) {
		line(Humanize(key), Currency(v))
	})

	b.WriteString("\n📈 Demonstrativos de Resultados\n")
	for _, period := range incomePeriods {
		fmt.Fprintf(&b, "\nPeríodo: %s\n", period.label)
		for _, key := range period.keys {
			v, ok := info.IncomeStatement.Get(key)
			if !ok {
				v = Placeholder
			}
			line(Humanize(strings.ReplaceAll(key, "liq", "líquido")), Currency(v))
		}
	}

	return b.String()
}

func fieldCurrency(f complementary.Field) string {
	if !f.Present() {
		return Placeholder
	}
	if n, ok := f.Number(); ok {
		return Currency(n)
	}
	return Currency(f.String())
}
