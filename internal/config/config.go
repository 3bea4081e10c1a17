package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the snapseek API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Inference InferenceConfig `yaml:"inference"`
	Detect    DetectConfig    `yaml:"detect"`
	Extract   ExtractConfig   `yaml:"extract"`
	Search    SearchConfig    `yaml:"search"`
	Assets    AssetsConfig    `yaml:"assets"`
	Blob      BlobConfig      `yaml:"blob"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// InferenceConfig holds model server settings.
type InferenceConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DetectConfig holds detection pipeline settings.
type DetectConfig struct {
	InputDim        int     `yaml:"input_dim"`
	ConfThreshold   float64 `yaml:"conf_threshold"`
	IoUThreshold    float64 `yaml:"iou_threshold"`
	MaxOutputs      int     `yaml:"max_outputs"`
	ClassOfInterest int     `yaml:"class_of_interest"`
}

// ExtractConfig holds feature extraction settings.
type ExtractConfig struct {
	InputDim int `yaml:"input_dim"`
}

// SearchConfig holds vector and catalog search settings.
type SearchConfig struct {
	EmbeddingIndex    string  `yaml:"embedding_index"`
	CatalogIndex      string  `yaml:"catalog_index"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
	TopK              int     `yaml:"top_k"`
}

// AssetsConfig holds image asset lifecycle settings.
type AssetsConfig struct {
	Dir          string `yaml:"dir"`
	RetentionSec int    `yaml:"retention_sec"`
	UploadSec    int    `yaml:"upload_timeout_sec"`
}

// BlobConfig holds durable blob storage settings.
type BlobConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Inference round-trips dominate request latency.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Inference.TimeoutSec <= 0 {
		c.Inference.TimeoutSec = 30
	}
	if c.Detect.InputDim <= 0 {
		c.Detect.InputDim = 640
	}
	if c.Detect.ConfThreshold <= 0 {
		c.Detect.ConfThreshold = 0.25
	}
	if c.Detect.IoUThreshold <= 0 {
		c.Detect.IoUThreshold = 0.75
	}
	if c.Detect.MaxOutputs <= 0 {
		c.Detect.MaxOutputs = 100
	}
	if c.Extract.InputDim <= 0 {
		c.Extract.InputDim = 256
	}
	if c.Search.EmbeddingIndex == "" {
		c.Search.EmbeddingIndex = "idx:embeddings"
	}
	if c.Search.CatalogIndex == "" {
		c.Search.CatalogIndex = "idx:products"
	}
	if c.Search.DistanceThreshold <= 0 {
		c.Search.DistanceThreshold = 0.65
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = filepath.Join(os.TempDir(), "snapseek")
	}
	if c.Assets.RetentionSec <= 0 {
		c.Assets.RetentionSec = 300
	}
	if c.Assets.UploadSec <= 0 {
		c.Assets.UploadSec = 30
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = "snapseek"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required")
	}
	if c.Detect.ConfThreshold > 1 {
		return fmt.Errorf("detect.conf_threshold must be at most 1, got %v", c.Detect.ConfThreshold)
	}
	if c.Detect.IoUThreshold > 1 {
		return fmt.Errorf("detect.iou_threshold must be at most 1, got %v", c.Detect.IoUThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
