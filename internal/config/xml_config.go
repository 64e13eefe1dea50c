// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/invoice-intake/backend/internal/store"
	"github.com/joho/godotenv"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"InvoiceIntake"`

	Server     ServerConfig     `xml:"Server"`
	Storage    StorageConfig    `xml:"Storage"`
	Processing ProcessingConfig `xml:"Processing"`
	Query      QueryConfig      `xml:"Query"`
	Advanced   AdvancedConfig   `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int    `xml:"Port"`
	BindAddress     string `xml:"BindAddress"`
	EnableCORS      bool   `xml:"EnableCORS"`
	AllowOrigins    string `xml:"AllowOrigins"`
	ReadTimeout     int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout    int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout     int    `xml:"IdleTimeoutSeconds"`
	ShutdownTimeout int    `xml:"ShutdownTimeoutSeconds"`
	BodyLimit       string `xml:"BodyLimit"`
}

// StorageConfig contains file and record storage settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	Backend          string `xml:"Backend"`
	DuckDBThreads    int    `xml:"DuckDBThreads"`
}

// ProcessingConfig controls the processing simulation
type ProcessingConfig struct {
	MinDelaySeconds int     `xml:"MinDelaySeconds"`
	MaxDelaySeconds int     `xml:"MaxDelaySeconds"`
	FailureRate     float64 `xml:"FailureRate"`
	CatalogFile     string  `xml:"CatalogFile"`
}

// QueryConfig contains list query settings
type QueryConfig struct {
	DefaultLimit    int `xml:"DefaultLimit"`
	MaxLimit        int `xml:"MaxLimit"`
	CacheSize       int `xml:"CacheSize"`
	CacheTTLSeconds int `xml:"CacheTTLSeconds"`
}

// AdvancedConfig contains logging and tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	EnableCompression    bool   `xml:"EnableCompression"`
	CompressionLevel     int    `xml:"CompressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            8089,
			BindAddress:     "0.0.0.0",
			EnableCORS:      false,
			AllowOrigins:    "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			IdleTimeout:     120,
			ShutdownTimeout: 60,
			BodyLimit:       "50M",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			Backend:          store.BackendMemory,
			DuckDBThreads:    2,
		},
		Processing: ProcessingConfig{
			MinDelaySeconds: 15,
			MaxDelaySeconds: 45,
			FailureRate:     0.2,
		},
		Query: QueryConfig{
			DefaultLimit:    10,
			MaxLimit:        100,
			CacheSize:       256,
			CacheTTLSeconds: 30,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from an XML file, creating it with defaults
// when missing. A .env file next to the config (or in the working directory)
// is loaded first; environment variables then override file values.
func LoadConfig(configPath string) (*AppConfig, error) {
	configDir := filepath.Dir(configPath)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	var config *AppConfig
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(configDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Invoice Intake Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the service cannot run with
func (c *AppConfig) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("Server.Port %d out of range", c.Server.Port))
	}
	switch c.Storage.Backend {
	case store.BackendMemory, store.BackendDuckDB:
	default:
		problems = append(problems, fmt.Sprintf("Storage.Backend %q is not %q or %q", c.Storage.Backend, store.BackendMemory, store.BackendDuckDB))
	}
	if c.Processing.MinDelaySeconds < 0 {
		problems = append(problems, "Processing.MinDelaySeconds must not be negative")
	}
	if c.Processing.MinDelaySeconds > c.Processing.MaxDelaySeconds {
		problems = append(problems, "Processing.MinDelaySeconds must not exceed MaxDelaySeconds")
	}
	if c.Processing.FailureRate < 0 || c.Processing.FailureRate > 1 {
		problems = append(problems, fmt.Sprintf("Processing.FailureRate %v outside [0, 1]", c.Processing.FailureRate))
	}
	if c.Query.DefaultLimit < 1 || c.Query.MaxLimit < 1 {
		problems = append(problems, "Query limits must be at least 1")
	}
	if c.Query.DefaultLimit > c.Query.MaxLimit {
		problems = append(problems, "Query.DefaultLimit must not exceed MaxLimit")
	}
	if c.Query.CacheSize < 0 {
		problems = append(problems, "Query.CacheSize must not be negative")
	}
	if _, err := parseLevel(c.Advanced.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
	if c.Processing.CatalogFile != "" && !filepath.IsAbs(c.Processing.CatalogFile) {
		c.Processing.CatalogFile = filepath.Join(configDir, c.Processing.CatalogFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// ShutdownTimeout is how long shutdown waits for requests and scheduled processing
func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// ProcessingDelays returns the simulated processing delay bounds
func (c *AppConfig) ProcessingDelays() (lo, hi time.Duration) {
	return time.Duration(c.Processing.MinDelaySeconds) * time.Second,
		time.Duration(c.Processing.MaxDelaySeconds) * time.Second
}

// CacheTTL returns the query cache entry lifetime
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Query.CacheTTLSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
