package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"array", `[{"papel":"PETR4"},{"papel":"VALE3"}]`, 2},
		{"object", `{"papel":"PETR4"}`, 1},
		{"fenced", "```json\n[{\"papel\":\"PETR4\"}]\n```", 1},
		{"blocks tags", "<blocks>[{\"papel\":\"PETR4\"}]</blocks>", 1},
		{"trailing comma", `[{"papel":"PETR4",},]`, 1},
		{"single quotes", `{'papel': 'PETR4'}`, 1},
		{"empty array", `[]`, 0},
		{"blocks wrapper", `{"blocks":[{"papel":"PETR4"},{"papel":"VALE3"}]}`, 2},
		{"any single-key wrapper", `{"items":[{"papel":"PETR4"}]}`, 1},
		{"empty wrapper", `{"blocks":[]}`, 0},
		{"single-key scalar list", `{"tags":["a","b"]}`, 1},
		{"two keys", `{"papel":"PETR4","oscilacoes":[{"dia":"1%"}]}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := ParseBlocks(tt.input)
			require.NoError(t, err)
			assert.Len(t, blocks, tt.want)
			for _, b := range blocks {
				assert.True(t, json.Valid(b))
			}
		})
	}
}

func TestParseBlocks_KeepsKeyOrder(t *testing.T) {
	blocks, err := ParseBlocks(`{"zeta":1,"alpha":2,"mid":3}`)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, `{"zeta":1,"alpha":2,"mid":3}`, string(blocks[0]))
}

func TestParseBlocks_Empty(t *testing.T) {
	_, err := ParseBlocks("   ")
	assert.Error(t, err)
}

func TestErrorBlock(t *testing.T) {
	b := errorBlock(2, "not json", assert.AnError)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, true, decoded["error"])
	assert.Equal(t, "not json", decoded["content"])
	assert.EqualValues(t, 2, decoded["index"])
}

func TestParseBlocks_UnwrapsWrapperObject(t *testing.T) {
	blocks, err := ParseBlocks(`{"items":[{"papel":"PETR4","setor":"Petróleo, Gás e Biocombustíveis"}]}`)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.JSONEq(t, `{"papel":"PETR4","setor":"Petróleo, Gás e Biocombustíveis"}`, string(blocks[0]))
}
