package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("file", "checking.csv").Msg("batch staged")

	out := buf.String()
	assert.Contains(t, out, `"file":"checking.csv"`)
	assert.Contains(t, out, "batch staged")
}

func TestNop(t *testing.T) {
	var buf bytes.Buffer
	log := Nop()
	log = log.Output(&buf)

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}
