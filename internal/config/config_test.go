package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BIM_INSIGHT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Data.Folder)
	assert.Equal(t, "analysis_results.json", cfg.Data.AnalysisPath)
	assert.Equal(t, "bim_analysis_report.html", cfg.Data.ReportPath)
	assert.Equal(t, "bim_elements", cfg.Retrieval.Collection)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 100, cfg.Retrieval.BatchSize)
	assert.Equal(t, "tfidf", cfg.Embedding.Provider)
	assert.Equal(t, "gemini", cfg.Generator.Provider)
	assert.Equal(t, "60s", cfg.Generator.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"data": map[string]interface{}{
			"folder":        "/exports",
			"analysis_path": "/exports/analysis.json",
		},
		"store": map[string]interface{}{
			"path":            "/custom/store.db",
			"max_connections": 20,
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)

	err = os.WriteFile(configPath, data, 0600)
	require.NoError(t, err)

	t.Setenv("BIM_INSIGHT_CONFIG", configPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/exports", cfg.Data.Folder)
	assert.Equal(t, "/exports/analysis.json", cfg.Data.AnalysisPath)
	assert.Equal(t, "/custom/store.db", cfg.Store.Path)
	assert.Equal(t, 20, cfg.Store.MaxConnections)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Untouched fields keep their defaults
	assert.Equal(t, "bim_elements", cfg.Retrieval.Collection)
}

func TestConfigLayeringFileUnderEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"data":    map[string]interface{}{"folder": "/file/exports"},
		"logging": map[string]interface{}{"level": "debug"},
	}

	data, err := json.Marshal(testConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	t.Setenv("BIM_INSIGHT_CONFIG", configPath)
	t.Setenv("BIM_INSIGHT_LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// The file value survives the default for its unset variable, while a
	// set variable still wins over the file.
	assert.Equal(t, "/file/exports", cfg.Data.Folder)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	err := os.WriteFile(configPath, []byte("invalid json"), 0600)
	require.NoError(t, err)

	config := &Config{}
	err = loadConfigFromFile(config, configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BIM_INSIGHT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("BIM_INSIGHT_DATA_FOLDER", "/env/exports")
	t.Setenv("BIM_INSIGHT_STORE_PATH", "/env/store.db")
	t.Setenv("BIM_INSIGHT_COLLECTION", "site_elements")
	t.Setenv("BIM_INSIGHT_QUERY_TOP_K", "8")
	t.Setenv("BIM_INSIGHT_LOG_LEVEL", "warn")
	t.Setenv("BIM_INSIGHT_GENERATOR_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/env/exports", cfg.Data.Folder)
	assert.Equal(t, "/env/store.db", cfg.Store.Path)
	assert.Equal(t, "site_elements", cfg.Retrieval.Collection)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "test-key", cfg.Generator.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	t.Setenv("BIM_INSIGHT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	overrides := map[string]interface{}{
		"data-folder": "/flag/exports",
		"store-path":  "/flag/store.db",
		"collection":  "flag_elements",
		"log-level":   "error",
	}

	cfg, err := LoadConfigWithOverrides(overrides)
	require.NoError(t, err)

	assert.Equal(t, "/flag/exports", cfg.Data.Folder)
	assert.Equal(t, "/flag/store.db", cfg.Store.Path)
	assert.Equal(t, "flag_elements", cfg.Retrieval.Collection)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Data: DataConfig{Folder: "data"},
			Store: StoreConfig{
				Path:            "store.db",
				MaxConnections:  10,
				MaxIdleConns:    5,
				ConnMaxLifetime: "30m",
			},
			Embedding: EmbeddingConfig{Provider: "tfidf"},
			Generator: GeneratorConfig{Provider: "gemini", Timeout: "60s"},
			Retrieval: RetrievalConfig{Collection: "bim_elements", TopK: 5, BatchSize: 100},
			Logging:   LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		}
	}

	tests := []struct {
		name          string
		modifyConfig  func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:         "valid config",
			modifyConfig: func(_ *Config) {},
			expectError:  false,
		},
		{
			name: "invalid log level",
			modifyConfig: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log level",
		},
		{
			name: "invalid log format",
			modifyConfig: func(c *Config) {
				c.Logging.Format = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log format",
		},
		{
			name: "invalid log output",
			modifyConfig: func(c *Config) {
				c.Logging.Output = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log output",
		},
		{
			name: "invalid embedding provider",
			modifyConfig: func(c *Config) {
				c.Embedding.Provider = "quantum"
			},
			expectError:   true,
			errorContains: "invalid embedding provider",
		},
		{
			name: "invalid generator timeout",
			modifyConfig: func(c *Config) {
				c.Generator.Timeout = "soon"
			},
			expectError:   true,
			errorContains: "invalid generator timeout",
		},
		{
			name: "non-positive top_k",
			modifyConfig: func(c *Config) {
				c.Retrieval.TopK = 0
			},
			expectError:   true,
			errorContains: "top_k must be positive",
		},
		{
			name: "non-positive batch size",
			modifyConfig: func(c *Config) {
				c.Retrieval.BatchSize = -1
			},
			expectError:   true,
			errorContains: "batch size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modifyConfig(cfg)

			err := validateConfig(cfg)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGeneratorTimeout(t *testing.T) {
	cfg := &Config{Generator: GeneratorConfig{Timeout: "15s"}}
	assert.Equal(t, "15s", cfg.GeneratorTimeout().String())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.db"), expandPath("~/x.db"))
	assert.Equal(t, "/abs/x.db", expandPath("/abs/x.db"))
	assert.Equal(t, home, expandPath("~"))
}
