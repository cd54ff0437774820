package report

import (
	"fmt"
	"strings"

	"github.com/mauv0809/analista/internal/market"
)

// Market renders a snapshot. A nil snapshot renders every field as the
// placeholder.
func Market(s *market.Snapshot) string {
	if s == nil {
		s = &market.Snapshot{Basic: market.BasicInfo{Currency: "USD"}}
	}

	var b strings.Builder
	line := func(label, v string) {
		fmt.Fprintf(&b, "- %s: %s\n", label, v)
	}

	fmt.Fprintf(&b, "📊 Relatório Detalhado da Ação %s\n", text(s.Basic.Symbol))

	b.WriteString("\n🏢 Informações Básicas\n")
	line("Nome", text(s.Basic.Name))
	line("Setor", text(s.Company.Sector))
	line("Indústria", text(s.Company.Industry))
	line("Website", text(s.Basic.Website))
	line("Funcionários", integer(s.Company.Employees))
	line("Endereço", text(s.Company.Address))

	b.WriteString("\n💰 Preço e Desempenho\n")
	line("Preço Atual", number(s.Price.Current)+" "+s.Basic.Currency)
	line("Mínima 52 semanas", number(s.Price.FiftyTwoWeekLow))
	line("Máxima 52 semanas", number(s.Price.FiftyTwoWeekHigh))
	line("Média 50 dias", number(s.Price.FiftyDayAverage))
	line("Média 200 dias", number(s.Price.TwoHundredDayAverage))

	b.WriteString("\n📈 Métricas Financeiras\n")
	line("Capitalização de Mercado", integer(s.Metrics.MarketCap))
	line("Valor da Firma", integer(s.Metrics.EnterpriseValue))
	line("P/L (Atual)", number(s.Metrics.TrailingPE))
	line("P/L (Projetado)", number(s.Metrics.ForwardPE))
	line("P/VP", number(s.Metrics.PriceToBook))
	line("EPS (Atual)", number(s.Metrics.TrailingEPS))
	line("EPS (Projetado)", number(s.Metrics.ForwardEPS))
	line("Dividend Yield", number(s.Metrics.DividendYield))
	line("Crescimento de Lucros", number(s.Metrics.EarningsGrowth))
	line("Crescimento de Receita", number(s.Metrics.RevenueGrowth))

	b.WriteString("\n📐 Rentabilidade\n")
	line("Margem Bruta", number(s.Profitability.GrossMargins))
	line("Margem EBITDA", number(s.Profitability.EBITDAMargins))
	line("Margem Líquida", number(s.Profitability.ProfitMargins))
	line("Margem Operacional", number(s.Profitability.OperatingMargins))

	b.WriteString("\n🏦 Saúde Financeira\n")
	line("Caixa Total", integer(s.Health.TotalCash))
	line("Dívida Total", integer(s.Health.TotalDebt))
	line("Fluxo de Caixa Livre", integer(s.Health.FreeCashflow))
	line("Fluxo de Caixa Operacional", integer(s.Health.OperatingCashflow))
	line("EBITDA", integer(s.Health.EBITDA))

	b.WriteString("\n📊 Recomendações de Analistas\n")
	line("Consenso", text(s.Analyst.Recommendation))
	line("Número de Analistas", integer(s.Analyst.AnalystOpinions))
	if s.Recommendations != nil {
		for pair := s.Recommendations.Oldest(); pair != nil; pair = pair.Next() {
			r := pair.Value
			line(PeriodLabel(pair.Key), fmt.Sprintf(
				"Strong Buy: %d, Buy: %d, Hold: %d, Sell: %d, Strong Sell: %d",
				r.StrongBuy, r.Buy, r.Hold, r.Sell, r.StrongSell))
		}
	}

	b.WriteString("\n🎯 Preços-Alvo dos Analistas\n")
	line("Mínimo", number(s.Analyst.TargetLow))
	line("Médio", number(s.Analyst.TargetMean))
	line("Máximo", number(s.Analyst.TargetHigh))

	b.WriteString("\n🔁 Negociação\n")
	line("Beta", number(s.Trading.Beta))
	line("Volume", integer(s.Trading.Volume))
	line("Volume Médio", integer(s.Trading.AverageVolume))

	b.WriteString("\n💡 Resumo de Negócios\n")
	if s.Basic.BusinessSummary != nil {
		b.WriteString(*s.Basic.BusinessSummary)
	} else {
		b.WriteString(NoSummary)
	}
	b.WriteString("\n")

	return b.String()
}
