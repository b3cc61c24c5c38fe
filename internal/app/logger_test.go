package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONCarriesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn", AppEnv: "staging"}, &buf)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "kept", record["msg"])
	require.Equal(t, serviceName, record["service"])
	require.Equal(t, "staging", record["env"])
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel(" Debug ").String())
	require.Equal(t, "INFO", parseLevel("verbose").String())
	require.Equal(t, "ERROR", parseLevel("error").String())
}

func TestTestModeFlag(t *testing.T) {
	// registered first so it runs after the env is restored
	t.Cleanup(RefreshTestMode)

	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
