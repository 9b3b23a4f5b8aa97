package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, StorageDriverMinio, cfg.Storage.Driver)
	assert.Equal(t, "ebooks", cfg.Storage.ContentBucket)
	assert.Equal(t, 30, cfg.Ebook.UploadConcurrency)
	assert.Equal(t, 600*time.Second, cfg.Ebook.LinkTTL)
	assert.Equal(t, time.Hour, cfg.Sweeper.Interval)
	assert.Equal(t, "notifications", cfg.RabbitMQ.Exchange)
}

func TestNew_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.yaml")
	content := []byte(`
env: prod
storage:
  driver: memory
ebook:
  upload_concurrency: 4
  link_ttl: 30s
payment:
  webhook_secret: from-file
`)
	require.NoError(t, os.WriteFile(file, content, 0o600))

	t.Setenv("APP_CONFIG_FILE", file)
	t.Setenv("APP_PAYMENT_WEBHOOK_SECRET", "from-env")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 4, cfg.Ebook.UploadConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Ebook.LinkTTL)
	assert.Equal(t, "from-env", cfg.Payment.WebhookSecret)
}
