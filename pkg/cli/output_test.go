package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]string{
		"":           formatJSON,
		"JSON":       formatJSON,
		"yml":        formatYAML,
		"yaml":       formatYAML,
		" md ":       formatMarkdown,
		"markdown":   formatMarkdown,
		"prometheus": formatProm,
		"prom":       formatProm,
	}
	for in, want := range tests {
		got, err := parseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseFormat("xml")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	v := map[string]int{"score": 42}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, formatJSON, v))
	assert.JSONEq(t, `{"score": 42}`, buf.String())

	buf.Reset()
	require.NoError(t, encode(&buf, formatYAML, v))
	assert.Equal(t, "score: 42\n", buf.String())

	assert.Error(t, encode(&buf, formatMarkdown, v))
}
