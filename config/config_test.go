package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Export.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Export.PollInterval)
	assert.Equal(t, int64(1<<30), cfg.Export.ZipSizeLimit)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "fiscalist-documents", cfg.Storage.Bucket)
}

func TestSplitAPIKeys(t *testing.T) {
	assert.Nil(t, splitAPIKeys(""))
	assert.Equal(t, []string{"a"}, splitAPIKeys("a"))
	assert.Equal(t, []string{"a", "b"}, splitAPIKeys("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitAPIKeys(" a , b ,"))
}
