package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Init("debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", zerolog.GlobalLevel())
	}

	Init("WARN")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", zerolog.GlobalLevel())
	}

	Init("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %s", zerolog.GlobalLevel())
	}

	Init("")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("empty level should fall back to info, got %s", zerolog.GlobalLevel())
	}
}
