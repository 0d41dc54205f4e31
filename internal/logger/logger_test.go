package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}

func TestNewHonorsLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	log := New()
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}

	t.Setenv("LOG_LEVEL", "garbage")
	log = New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info fallback for unknown value", log.GetLevel())
	}
}
