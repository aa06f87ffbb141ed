package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.DragPersistDebounce != 100*time.Millisecond ||
		cfg.DrawingFlagTTL != 2*time.Second || cfg.SendBuffer != 256 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DRAG_PERSIST_DEBOUNCE", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.DragPersistDebounce != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestLoadRejectsBadBuffer(t *testing.T) {
	t.Setenv("SEND_BUFFER", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: "http://localhost:5173, https://draw.example.com,,"}
	want := []string{"localhost:5173", "draw.example.com"}
	if got := cfg.Origins(); !reflect.DeepEqual(got, want) {
		t.Errorf("Origins = %v, want %v", got, want)
	}
}

func TestLevelFallback(t *testing.T) {
	cfg := Config{LogLevel: "loud"}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.Level())
	}
}
