package complementary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petr4Block = `{
	"papel": "PETR4",
	"cotacao": "38,50",
	"tipo": "PN",
	"empresa": "Petróleo Brasileiro S.A.",
	"setor": "Petróleo, Gás e Biocombustíveis",
	"subsetor": null,
	"valor_mercado": "497.580.695.552",
	"numero_acoes": 13044496930,
	"oscilacoes": {"dia": "-0,52%", "mes": "3,10%", "12_meses": "15,2%"},
	"indicadores_fundamentalistas": {"p_l": "4,25", "roe": "26,4%"},
	"balanco_patrimonial": {"ativo": "1.050.000.000.000", "divida_bruta": "300.000.000.000"},
	"demonstrativos_resultados": {"receita_liq_ultimos_12_meses": "490.000.000.000"}
}`

func TestInfo_Unmarshal(t *testing.T) {
	var info Info
	require.NoError(t, json.Unmarshal([]byte(petr4Block), &info))

	assert.Equal(t, "PETR4", info.Ticker.String())
	assert.True(t, info.Ticker.Present())
	assert.False(t, info.Subsector.Present(), "null is absent")
	assert.False(t, info.FirmValue.Present(), "missing key is absent")
	assert.Equal(t, "N/A", info.FirmValue.Or("N/A"))
	assert.Equal(t, "13044496930", info.ShareCount.String(), "numbers keep their literal text")

	var keys []string
	info.Oscillations.Each(func(key string, value any) { keys = append(keys, key) })
	assert.Equal(t, []string{"dia", "mes", "12_meses"}, keys, "source order is kept")

	v, ok := info.IncomeStatement.Get("receita_liq_ultimos_12_meses")
	require.True(t, ok)
	assert.Equal(t, "490.000.000.000", v)
	assert.Equal(t, 2, info.BalanceSheet.Len())
}

func TestInfo_SectionNotAnObject(t *testing.T) {
	var info Info
	err := json.Unmarshal([]byte(`{"papel":"X","oscilacoes":["dia","mes"],"indicadores_fundamentalistas":"n/d"}`), &info)
	require.NoError(t, err)

	assert.Equal(t, 0, info.Oscillations.Len())
	assert.Equal(t, 0, info.Indicators.Len())
	info.Oscillations.Each(func(string, any) { t.Fatal("empty section has no entries") })
}

func TestSection_Zero(t *testing.T) {
	var s Section
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("x")
	assert.False(t, ok)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestNewSection(t *testing.T) {
	s := NewSection("b", 1, "a", "dois")
	var keys []string
	s.Each(func(key string, value any) { keys = append(keys, key) })
	assert.Equal(t, []string{"b", "a"}, keys)
}

func TestField_Marshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A Field `json:"a"`
		B Field `json:"b"`
	}{A: NewField("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":null}`, string(b))
}

func TestField_BlankIsAbsent(t *testing.T) {
	var info Info
	require.NoError(t, json.Unmarshal([]byte(`{"papel":"  ","setor":""}`), &info))
	assert.False(t, info.Ticker.Present())
	assert.Equal(t, "Ação", info.Ticker.Or("Ação"))
	assert.False(t, info.Sector.Present())
}

func TestField_Number(t *testing.T) {
	var info Info
	require.NoError(t, json.Unmarshal([]byte(`{"valor_mercado":1234.5,"valor_firma":"1.234,50","numero_acoes":true}`), &info))

	n, ok := info.MarketValue.Number()
	require.True(t, ok)
	assert.Equal(t, "1234.5", n.String())

	_, ok = info.FirmValue.Number()
	assert.False(t, ok)
	_, ok = info.ShareCount.Number()
	assert.False(t, ok)
	assert.Equal(t, "true", info.ShareCount.String())
}
