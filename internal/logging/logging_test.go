package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/config"
)

func TestConfigure_ConsoleOnly(t *testing.T) {
	require.NoError(t, Configure(config.LogConfig{Level: "WARN"}))
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}

func TestConfigure_FileSink(t *testing.T) {
	defer log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	path := filepath.Join(t.TempDir(), "logs", "fleet.log")
	require.NoError(t, Configure(config.LogConfig{Level: "DEBUG", FilePath: path, MaxAgeDays: 1}))
	log.SetOutput(io.Discard)

	log.WithField("unit_id", "abc").Info("unit started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "unit started")
	assert.Contains(t, string(data), "unit_id=abc")
}
