package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
	"github.com/mickamy/qprof/test"
)

func TestParseExplainText(t *testing.T) {
	stats, err := parser.ParseExplainText("h\nPartitionsTotal = 12\nPartitionsScanned = 3\nBytesScanned = 4096\n")
	require.NoError(t, err)
	assert.Equal(t, model.ExplainStats{PartitionsTotal: 12, PartitionsScanned: 3, BytesScanned: 4096}, stats)
}

func TestParseExplainTextSample(t *testing.T) {
	stats, err := parser.ParseExplainText(test.ReadSample(t, "explain_global_stats.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.PartitionsTotal)
	assert.Equal(t, int64(4), stats.PartitionsScanned)
	assert.Equal(t, int64(5242880), stats.BytesScanned)
}

func TestParseExplainTextCRLF(t *testing.T) {
	stats, err := parser.ParseExplainText("GlobalStats:\r\n partitionsTotal=7\r\n partitionsAssigned=7\r\n bytesAssigned=1024\r\n")
	require.NoError(t, err)
	assert.Equal(t, model.ExplainStats{PartitionsTotal: 7, PartitionsScanned: 7, BytesScanned: 1024}, stats)
}

func TestParseExplainTextMalformed(t *testing.T) {
	cases := map[string]string{
		"two lines":     "h\nPartitionsTotal = 12\n",
		"empty":         "",
		"missing equal": "h\nPartitionsTotal 12\nPartitionsScanned = 3\nBytesScanned = 4096",
		"not a number":  "h\nPartitionsTotal = 12\nPartitionsScanned = three\nBytesScanned = 4096",
		"decimal":       "h\nPartitionsTotal = 12\nPartitionsScanned = 3\nBytesScanned = 40.96",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parser.ParseExplainText(input)
			assert.ErrorIs(t, err, model.ErrMalformedPlan)
		})
	}
}
