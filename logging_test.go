package authcore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLeavesGlobalsAlone(t *testing.T) {
	format, level := zerolog.TimeFieldFormat, zerolog.GlobalLevel()

	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "debug", Environment: "production", ServiceName: "studentopia", Output: &buf})
	log.Debug().Msg("hello")

	if zerolog.TimeFieldFormat != format || zerolog.GlobalLevel() != level {
		t.Fatal("NewLogger changed zerolog globals")
	}
	if !strings.Contains(buf.String(), `"service":"studentopia"`) {
		t.Fatalf("missing service field: %s", buf.String())
	}
}
