package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, hclog.Debug, ParseLevel("debug"))
	assert.Equal(t, hclog.Warn, ParseLevel(" WARN "))
	assert.Equal(t, hclog.Off, ParseLevel("off"))
	assert.Equal(t, hclog.Info, ParseLevel("loud"))
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", JSON: true, Output: &buf})
	l.Named("pipeline").Info("stage started", "stage", "transcoding")
	l.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "stage started", line["@message"])
	assert.Equal(t, "transcoding", line["stage"])
	assert.Equal(t, "clipforge.pipeline", line["@module"])
	assert.False(t, IsTerminal(&buf))
}
