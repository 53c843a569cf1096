package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("visible")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info line emitted at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Fatal("warn line missing")
	}
}

func TestNewWithWriterBadLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chatty", &buf)
	log.Info().Msg("at info")
	if !strings.Contains(buf.String(), "at info") {
		t.Fatal("fallback level is not info")
	}
}
