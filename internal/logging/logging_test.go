package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"eyeluxe/internal/config"
)

func TestInstall_ReplacesGlobal(t *testing.T) {
	before := zap.L()
	restore, err := Install(config.LogConfig{Mode: "production"})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if zap.L() == before {
		t.Fatalf("global logger not replaced")
	}
	restore()
	if zap.L() != before {
		t.Fatalf("global logger not restored")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eyeluxe.log")
	logger, err := New(config.LogConfig{Mode: "development", FileEnable: true, Filename: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("bill created", zap.String("invoice_no", "INV-00001"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file content")
	}
}
