package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Data      DataConfig      `json:"data"      envPrefix:"BIM_INSIGHT_"`
	Store     StoreConfig     `json:"store"     envPrefix:"BIM_INSIGHT_"`
	Embedding EmbeddingConfig `json:"embedding" envPrefix:"BIM_INSIGHT_"`
	Generator GeneratorConfig `json:"generator" envPrefix:"BIM_INSIGHT_"`
	Retrieval RetrievalConfig `json:"retrieval" envPrefix:"BIM_INSIGHT_"`
	Logging   LoggingConfig   `json:"logging"   envPrefix:"BIM_INSIGHT_"`
}

// DataConfig locates the tabular exports and the analysis artifacts
type DataConfig struct {
	Folder         string `json:"folder"          env:"DATA_FOLDER"     envDefault:"data"`
	AnalysisPath   string `json:"analysis_path"   env:"ANALYSIS_PATH"   envDefault:"analysis_results.json"`
	ReportPath     string `json:"report_path"     env:"REPORT_PATH"     envDefault:"bim_analysis_report.html"`
	ExpectedSchema string `json:"expected_schema" env:"EXPECTED_SCHEMA" envDefault:""`
}

// StoreConfig represents vector store (DuckDB) configuration
type StoreConfig struct {
	Path            string `json:"path"               env:"STORE_PATH"          envDefault:"~/.config/bim-insight/store.db"`
	MaxConnections  int    `json:"max_connections"    env:"STORE_MAX_CONNS"     envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"STORE_MAX_IDLE"      envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"STORE_CONN_LIFETIME" envDefault:"30m"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider   string `json:"provider"   env:"EMBEDDING_PROVIDER"   envDefault:"tfidf"` // tfidf, remote
	Model      string `json:"model"      env:"EMBEDDING_MODEL"      envDefault:""`
	BaseURL    string `json:"base_url"   env:"EMBEDDING_BASE_URL"   envDefault:""`
	APIKey     string `json:"-"          env:"EMBEDDING_API_KEY"    envDefault:""`
	Dimensions int    `json:"dimensions" env:"EMBEDDING_DIMENSIONS" envDefault:"0"` // 0 = provider decides
}

// GeneratorConfig configures the optional hosted language model.
// The generator is enabled only when an API key is present; absence
// degrades to the formatted-context fallback instead of failing startup.
type GeneratorConfig struct {
	Provider string `json:"provider" env:"GENERATOR_PROVIDER" envDefault:"gemini"` // gemini, openai, ollama
	Model    string `json:"model"    env:"GENERATOR_MODEL"    envDefault:"gemini-2.0-flash"`
	APIKey   string `json:"-"        env:"GENERATOR_API_KEY"  envDefault:""`
	BaseURL  string `json:"base_url" env:"GENERATOR_BASE_URL" envDefault:""`
	Timeout  string `json:"timeout"  env:"GENERATOR_TIMEOUT"  envDefault:"60s"`
}

// RetrievalConfig configures the similarity-search collection
type RetrievalConfig struct {
	Collection string `json:"collection" env:"COLLECTION"  envDefault:"bim_elements"`
	TopK       int    `json:"top_k"      env:"QUERY_TOP_K" envDefault:"5"`
	BatchSize  int    `json:"batch_size" env:"BATCH_SIZE"  envDefault:"100"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/bim-insight/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag
// overrides. Layering is defaults, then the config file, then explicitly set
// environment variables, then flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// Parsing against an empty environment yields the pure envDefault
	// values. The BIM_INSIGHT_ prefix comes from the struct tags.
	defaults := &Config{}
	if err := env.ParseWithOptions(defaults, env.Options{Environment: map[string]string{}}); err != nil {
		return nil, fmt.Errorf("failed to apply default configuration: %w", err)
	}

	config := &Config{}
	*config = *defaults

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// env.Parse fills unset variables with their envDefault values, so a
	// separate pass compared against the pure defaults tells explicit
	// environment values apart from re-applied defaults. File values
	// survive unless the variable was actually set.
	fromEnv := &Config{}
	if err := env.Parse(fromEnv); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	overrideChanged(config, fromEnv, defaults)

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "data-folder":
			if str, ok := value.(string); ok && str != "" {
				config.Data.Folder = str
			}
		case "store-path":
			if str, ok := value.(string); ok && str != "" {
				config.Store.Path = str
			}
		case "collection":
			if str, ok := value.(string); ok && str != "" {
				config.Retrieval.Collection = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// overrideChanged copies fields from source into target wherever source
// differs from base. A field equal to its default is treated as not set,
// so an earlier layer's value stands.
func overrideChanged(target, source, base *Config) {
	var walk func(t, s, b reflect.Value)
	walk = func(t, s, b reflect.Value) {
		if t.Kind() == reflect.Struct {
			for i := range t.NumField() {
				walk(t.Field(i), s.Field(i), b.Field(i))
			}

			return
		}

		if !s.Equal(b) {
			t.Set(s)
		}
	}

	walk(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem(), reflect.ValueOf(base).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{"tfidf": true, "remote": true}
	if !validProviders[config.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider: %s (must be tfidf or remote)",
			config.Embedding.Provider)
	}

	if _, err := time.ParseDuration(config.Generator.Timeout); err != nil {
		return fmt.Errorf("invalid generator timeout: %s", config.Generator.Timeout)
	}

	if _, err := time.ParseDuration(config.Store.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid store connection lifetime: %s", config.Store.ConnMaxLifetime)
	}

	if config.Store.MaxConnections <= 0 {
		return fmt.Errorf("store max connections must be positive: %d", config.Store.MaxConnections)
	}

	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive: %d", config.Retrieval.TopK)
	}

	if config.Retrieval.BatchSize <= 0 {
		return fmt.Errorf("ingestion batch size must be positive: %d", config.Retrieval.BatchSize)
	}

	return nil
}

// GeneratorTimeout returns the parsed generator timeout. Validation
// guarantees the duration string parses.
func (c *Config) GeneratorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generator.Timeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("BIM_INSIGHT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "bim-insight", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Store.Path = expandPath(c.Store.Path)
	c.Logging.File = expandPath(c.Logging.File)
	c.Data.Folder = expandPath(c.Data.Folder)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Store.Path),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
