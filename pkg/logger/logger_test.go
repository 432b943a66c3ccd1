package logger

import (
	"testing"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud", Format: "json", OutputPath: "stdout"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewBuildsConsoleLogger(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Format: "console", OutputPath: "stdout"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Fatalf("expected debug level to be enabled")
	}
}
