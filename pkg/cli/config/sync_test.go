package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/cli/config"
)

func writeTuningFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sync.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o644)).Required()
	return path
}

func configureSync(t *testing.T, path string) (*config.Tuning, error) {
	t.Helper()
	return config.NewSyncForTest(path).Configure()
}

func TestSyncDefaults(t *testing.T) {
	tuning, err := configureSync(t, "")
	gt.NoError(t, err).Required()

	gt.Number(t, tuning.Workers).Equal(4)
	gt.Number(t, tuning.MaxAttempts).Equal(5)
	gt.Value(t, tuning.Window()).Equal(15 * time.Minute)
	gt.Value(t, tuning.Grace()).Equal(24 * time.Hour)
}

func TestSyncFromFile(t *testing.T) {
	path := writeTuningFile(t, `
workers = 8
queue_size = 512
max_attempts = 3
retry_base_delay = "500ms"
refresh_window = "30m"
`)

	tuning, err := configureSync(t, path)
	gt.NoError(t, err).Required()

	gt.Number(t, tuning.Workers).Equal(8)
	gt.Number(t, tuning.QueueSize).Equal(512)
	gt.Number(t, tuning.MaxAttempts).Equal(3)
	gt.Value(t, tuning.BaseDelay()).Equal(500 * time.Millisecond)
	gt.Value(t, tuning.Window()).Equal(30 * time.Minute)

	// Omitted fields keep their defaults
	gt.Value(t, tuning.Grace()).Equal(24 * time.Hour)
}

func TestSyncRejectsInvalidDuration(t *testing.T) {
	path := writeTuningFile(t, `retry_base_delay = "not-a-duration"`)

	_, err := configureSync(t, path)
	gt.Error(t, err)
}

func TestSyncRejectsNonPositiveWorkers(t *testing.T) {
	path := writeTuningFile(t, `workers = 0`)

	_, err := configureSync(t, path)
	gt.Error(t, err)
}
