package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ArtifactsDir = filepath.Join(base, "artifacts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Pipeline.CandidateDelayMS = 0
	cfg.Pipeline.PollInterval = 1
	// Tests must never reach the public archive endpoint.
	cfg.Extraction.ArchiveEnabled = false
	cfg.Extraction.ArchiveBaseURL = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
