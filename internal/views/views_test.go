package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mauv0809/analista/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	price := decimal.RequireFromString("38.5")
	var b bytes.Buffer
	err := Index([]models.Analysis{
		{Ticker: "PETR4", CurrentPrice: &price, Currency: "BRL", Model: "llama3.1", CreatedAt: time.Now()},
		{Ticker: "<VALE3>", Model: "gpt-4o", Failed: true, CreatedAt: time.Now()},
	}).Render(context.Background(), &b)
	require.NoError(t, err)

	html := b.String()
	assert.Contains(t, html, `<a href="/reports/PETR4">PETR4</a>`)
	assert.Contains(t, html, "BRL 38.50")
	assert.Contains(t, html, "&lt;VALE3&gt;")
	assert.NotContains(t, html, "<VALE3>")
	assert.Contains(t, html, "erro")
}

func TestIndex_Empty(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, Index(nil).Render(context.Background(), &b))
	assert.Contains(t, b.String(), "Nenhuma análise registrada.")
}

func TestReport(t *testing.T) {
	var b bytes.Buffer
	a := &models.Analysis{Ticker: "PETR4", Model: "llama3.1", AnalysisDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, Report(a, "<h2>Resumo</h2>").Render(context.Background(), &b))

	html := b.String()
	assert.Contains(t, html, "<title>PETR4 | Analista</title>")
	assert.Contains(t, html, "01/05/2024")
	assert.Contains(t, html, "<article><h2>Resumo</h2></article>")
	assert.NotContains(t, html, "falhou")
}

func TestReport_Failed(t *testing.T) {
	var b bytes.Buffer
	a := &models.Analysis{Ticker: "PETR4", Failed: true}
	require.NoError(t, Report(a, "<p>Erro ao fazer chamada ao modelo</p>").Render(context.Background(), &b))
	assert.Contains(t, b.String(), `<p class="error">A chamada ao modelo falhou.</p>`)
}

func TestNotFound(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, NotFound("<X>").Render(context.Background(), &b))
	assert.Contains(t, b.String(), "<h1>&lt;X&gt;</h1>")
	assert.Contains(t, b.String(), "Nenhuma análise encontrada.")
}
