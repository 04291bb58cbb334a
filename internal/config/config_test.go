package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, int32(2000), cfg.AI.ThinkingBudget)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 10<<20, cfg.Wizard.MaxImageBytes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  writeTimeout: 3m
ai:
  provider: openai
  model: gpt-4o-mini
  locale: zh-TW
database:
  driver: postgres
  host: db
  port: 5432
  name: palm
redis:
  addr: localhost:6379
  sessionTTL: 2h
auth:
  apiKeys:
    kiosk: abc
`)
	t.Setenv("PORT", "9100")
	t.Setenv("AI_MODEL", "gpt-4.1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4.1", cfg.AI.Model)
	assert.Equal(t, "zh-TW", cfg.AI.Locale)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, map[string]string{"kiosk": "abc"}, cfg.Auth.APIKeys)
	assert.Equal(t, "host=db port=5432 user= password= dbname=palm sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"provider": "ai:\n  provider: claude\n",
		"locale":   "ai:\n  locale: fr\n",
		"driver":   "database:\n  driver: sqlite\n",
		"db host":  "database:\n  driver: mysql\n",
		"port":     "server:\n  port: 70000\n",
		"yaml":     "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestAIKey_ResolvedPerCall(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "from-file"
	t.Setenv("GEMINI_API_KEY", "")
	assert.Equal(t, "from-file", cfg.AIKey())

	t.Setenv("GEMINI_API_KEY", " rotated ")
	assert.Equal(t, "rotated", cfg.AIKey())

	cfg.AI.Provider = "openai"
	assert.Equal(t, "OPENAI_API_KEY", cfg.APIKeyEnv())
	cfg.AI.APIKeyEnv = "PALM_KEY"
	t.Setenv("PALM_KEY", "custom")
	assert.Equal(t, "custom", cfg.AIKey())
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.User, cfg.Database.Password = "u", "p"
	cfg.Database.Host, cfg.Database.Port, cfg.Database.Name = "h", 3306, "palm"
	assert.Equal(t, "u:p@tcp(h:3306)/palm?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}
