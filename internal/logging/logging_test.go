package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		var buf bytes.Buffer
		assert.Equal(t, want, Setup(&buf, in), "level %q", in)
		assert.Equal(t, want, zerolog.GlobalLevel(), "level %q", in)
	}
}

func TestSetupWritesConsoleFormat(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	Setup(&buf, "info")
	log.Debug().Msg("hidden")
	log.Info().Str("target", "HEAD").Msg("parsed diff")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "parsed diff")
	assert.Contains(t, out, "target=HEAD")
	assert.NotContains(t, out, "{")
}
