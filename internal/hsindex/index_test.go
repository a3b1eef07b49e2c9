package hsindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loxtr/console/internal/backend"
)

func TestCertificatesFor(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"0805.10", []string{"FDA", "HACCP", "Halal", "Organic"}},
		{"3208.10", []string{"REACH", "ISO 14001", "RoHS"}},
		{"6109", []string{"OEKO-TEX", "GOTS", "ISO 14001"}},
		{"7208", []string{"ISO 9001", "ASTM", "DIN"}},
		{"8418.10", []string{"CE", "RoHS", "UL", "ISO 9001"}},
		{"9018", []string{"CE (Medical Devices)", "FDA (Medical Devices)", "ISO 13485"}},
		{"6802.21", []string{"ISO 9001", "ISO 14001"}},
		{"xx", []string{"ISO 9001", "ISO 14001"}},
		{"8", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, CertificatesFor(tt.code))
		})
	}
}

func TestCertificatesForReturnsCopy(t *testing.T) {
	got := CertificatesFor("0101")
	got[0] = "changed"
	assert.Equal(t, "FDA", CertificatesFor("0101")[0])
}

func TestReadCSV(t *testing.T) {
	in := "code,description\n3208.10, Paints based on polyesters\n\"6802.21\",\"Marble, cut\"\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []backend.HSCode{
		{Code: "3208.10", Description: "Paints based on polyesters"},
		{Code: "6802.21", Description: "Marble, cut"},
	}, got)

	_, err = ReadCSV(strings.NewReader("3208.10\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_cotton\\`, escapeLike(`100%_cotton\`))
}
