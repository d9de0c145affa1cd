package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Recorder.ScreenshotTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Recorder.ScreencastInterval)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 7, cfg.Retention.Days)
	assert.False(t, cfg.JWT.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("RECORDER_SCREENSHOT_TIMEOUT", "750ms")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CHROME_HEADLESS", "true")
	t.Setenv("DB_NAME", "rec")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Recorder.ScreenshotTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Chrome.HeadlessMode)
	assert.Contains(t, cfg.GetDSN(), "/rec?charset=utf8mb4")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STORE_DRIVER", "postgres")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RECORDER_SCREENSHOT_TIMEOUT", "0s")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "RECORDER_SCREENSHOT_TIMEOUT")
}
