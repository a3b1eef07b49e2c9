package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductAcceptsBareName(t *testing.T) {
	var ps []Product
	require.NoError(t, json.Unmarshal([]byte(`["Marble", {"name":"Travertine","hsCode":"6802.21"}]`), &ps))
	assert.Equal(t, []Product{{Name: "Marble"}, {Name: "Travertine", HSCode: "6802.21"}}, ps)
	assert.Equal(t, []string{"Marble", "Travertine"}, ProductNames(ps))
}

func TestHSCodeChapter(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"3208.10", "32"},
		{"0805", "08"},
		{"8", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HSCode{Code: tt.code}.Chapter(), tt.code)
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array envelope", `{"success":true,"data":[{"code":"01"},{"code":"02"}]}`, 2},
		{"object envelope", `{"success":true,"data":{"results":[{"code":"01"}]}}`, 1},
		{"missing key", `{"success":true,"data":{"other":[]}}`, 0},
		{"null data", `{"success":true,"data":null}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeList[HSCode]([]byte(tt.body), "results")
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestLabels(t *testing.T) {
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`["Chemicals", {"name":"Textiles"}, {"title":"Buyer"}, {"x":1}, "  "]`), &items))
	assert.Equal(t, []string{"Chemicals", "Textiles", "Buyer"}, labels(items))
}
