package report

import (
	"strings"
	"testing"

	"github.com/mauv0809/analista/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func str(s string) *string { return &s }

func TestMarket(t *testing.T) {
	recs := market.NewRecommendations()
	recs.Set("0m", market.Recommendation{StrongBuy: 3, Buy: 6, Hold: 4, Sell: 1})
	recs.Set("-1m", market.Recommendation{StrongBuy: 2, Buy: 7, Hold: 4, Sell: 1})
	recs.Set("-6m", market.Recommendation{Hold: 1})

	snap := &market.Snapshot{
		Basic: market.BasicInfo{
			Name:     str("PETROBRAS PN"),
			Symbol:   str("PETR4.SA"),
			Currency: "BRL",
		},
		Price: market.PriceInfo{
			Current:          dec("38.5"),
			FiftyTwoWeekLow:  dec("30"),
			FiftyTwoWeekHigh: dec("40"),
		},
		Recommendations: recs,
	}

	out := Market(snap)

	assert.Contains(t, out, "📊 Relatório Detalhado da Ação PETR4.SA")
	assert.Contains(t, out, "- Nome: PETROBRAS PN")
	assert.Contains(t, out, "- Preço Atual: 38.5 BRL")
	assert.Contains(t, out, "- Mínima 52 semanas: 30.0")
	assert.Contains(t, out, "- Máxima 52 semanas: 40.0")
	assert.Contains(t, out, "- Setor: N/A")
	assert.Contains(t, out, "- Período Atual: Strong Buy: 3, Buy: 6, Hold: 4, Sell: 1, Strong Sell: 0")
	assert.Contains(t, out, "- 1 Mês Atrás: Strong Buy: 2, Buy: 7")
	assert.Contains(t, out, "- -6m: Strong Buy: 0, Buy: 0, Hold: 1")
	assert.Contains(t, out, "💡 Resumo de Negócios\n"+NoSummary)

	// periods keep provider order
	assert.Less(t, strings.Index(out, "Período Atual"), strings.Index(out, "1 Mês Atrás"))
}

func TestMarket_AllAbsent(t *testing.T) {
	out := Market(&market.Snapshot{Basic: market.BasicInfo{Currency: "USD"}})

	assert.Contains(t, out, "Ação N/A")
	assert.Contains(t, out, "- Preço Atual: N/A USD")
	assert.Contains(t, out, "- Capitalização de Mercado: N/A")
	assert.Contains(t, out, NoSummary)
	assert.NotContains(t, out, "<nil>")
}

func TestMarket_Nil(t *testing.T) {
	out := Market(nil)
	assert.Contains(t, out, "🎯 Preços-Alvo dos Analistas")
	assert.Contains(t, out, "- Mínimo: N/A")
}

func TestMarket_Summary(t *testing.T) {
	out := Market(&market.Snapshot{Basic: market.BasicInfo{
		Currency:        "BRL",
		BusinessSummary: str("Explora e produz petróleo."),
	}})
	assert.Contains(t, out, "💡 Resumo de Negócios\nExplora e produz petróleo.\n")
	assert.NotContains(t, out, NoSummary)
}
