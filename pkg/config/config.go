package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the scanner
type Config struct {
	// Probed resource
	Target TargetConfig `yaml:"target" json:"target"`

	// Identifier space
	Space SpaceConfig `yaml:"space" json:"space"`

	// Scan behaviour
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Checkpoint and result files
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// TargetConfig describes the HTTP resource each identifier is checked against
type TargetConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	PlaceholderTitles []string      `yaml:"placeholder_titles" json:"placeholder_titles"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// SpaceConfig defines the enumerated identifiers
type SpaceConfig struct {
	Alphabet string `yaml:"alphabet" json:"alphabet"`
	Width    int    `yaml:"width" json:"width"`
}

// ScanConfig holds orchestration settings
type ScanConfig struct {
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
	Gentle            bool          `yaml:"gentle" json:"gentle"`
	GentleMinDelay    time.Duration `yaml:"gentle_min_delay" json:"gentle_min_delay"`
	GentleMaxDelay    time.Duration `yaml:"gentle_max_delay" json:"gentle_max_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	ProgressInterval  int           `yaml:"progress_interval" json:"progress_interval"`
}

// StorageConfig holds file locations. Relative file names resolve against DataDir.
type StorageConfig struct {
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	CheckpointFile string `yaml:"checkpoint_file" json:"checkpoint_file"`
	FoundFile      string `yaml:"found_file" json:"found_file"`
	FoundFormat    string `yaml:"found_format" json:"found_format"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds the optional metrics listener
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

const (
	DefaultBaseURL   = "https://www.youtube.com/watch?v="
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	DefaultAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

	FormatCSV  = "csv"
	FormatText = "text"

	MaxConcurrency = 256
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL:           DefaultBaseURL,
			UserAgent:         DefaultUserAgent,
			Timeout:           15 * time.Second,
			PlaceholderTitles: []string{"- YouTube", "Video - YouTube", "YouTube"},
			MaxBodyBytes:      2 * 1024 * 1024,
		},
		Space: SpaceConfig{
			Alphabet: DefaultAlphabet,
			Width:    11,
		},
		Scan: ScanConfig{
			Concurrency:       10,
			Gentle:            false,
			GentleMinDelay:    1 * time.Second,
			GentleMaxDelay:    4 * time.Second,
			RequestsPerMinute: 0,
			ProgressInterval:  100,
		},
		Storage: StorageConfig{
			DataDir:        "",
			CheckpointFile: "lastyt",
			FoundFile:      "",
			FoundFormat:    FormatCSV,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from YTSCAN_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("YTSCAN_BASE_URL"); v != "" {
		c.Target.BaseURL = v
	}
	if v := os.Getenv("YTSCAN_USER_AGENT"); v != "" {
		c.Target.UserAgent = v
	}
	if v := os.Getenv("YTSCAN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("YTSCAN_TIMEOUT: %w", err))
		} else {
			c.Target.Timeout = d
		}
	}
	if v := os.Getenv("YTSCAN_PLACEHOLDER_TITLES"); v != "" {
		c.Target.PlaceholderTitles = splitList(v)
	}

	if v := os.Getenv("YTSCAN_ALPHABET"); v != "" {
		c.Space.Alphabet = v
	}
	if v := os.Getenv("YTSCAN_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("YTSCAN_WIDTH: %w", err))
		} else {
			c.Space.Width = n
		}
	}

	if v := os.Getenv("YTSCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("YTSCAN_CONCURRENCY: %w", err))
		} else {
			c.Scan.Concurrency = n
		}
	}
	if v := os.Getenv("YTSCAN_GENTLE"); v != "" {
		c.Scan.Gentle = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("YTSCAN_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("YTSCAN_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.Scan.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("YTSCAN_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("YTSCAN_CHECKPOINT_FILE"); v != "" {
		c.Storage.CheckpointFile = v
	}
	if v := os.Getenv("YTSCAN_FOUND_FILE"); v != "" {
		c.Storage.FoundFile = v
	}
	if v := os.Getenv("YTSCAN_FOUND_FORMAT"); v != "" {
		c.Storage.FoundFormat = v
	}

	if v := os.Getenv("YTSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("YTSCAN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("YTSCAN_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".ytscan.yaml",
		".ytscan.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "ytscan", "config.yaml"),
			filepath.Join(home, ".config", "ytscan", "config.yml"),
			filepath.Join(home, ".ytscan.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(strings.ReplaceAll(c.Target.BaseURL, "{id}", "x"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q must be an absolute http(s) URL", c.Target.BaseURL))
	}
	if c.Target.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Target.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}

	if c.Space.Alphabet == "" {
		errs = append(errs, errors.New("alphabet must not be empty"))
	} else {
		seen := make(map[rune]bool)
		for _, r := range c.Space.Alphabet {
			if seen[r] {
				errs = append(errs, fmt.Errorf("alphabet contains duplicate symbol %q", r))
				break
			}
			seen[r] = true
		}
	}
	if c.Space.Width < 1 {
		errs = append(errs, errors.New("identifier width must be positive"))
	}

	if c.Scan.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.Scan.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency should not exceed %d", MaxConcurrency))
	}
	if c.Scan.GentleMinDelay < 0 || c.Scan.GentleMaxDelay < c.Scan.GentleMinDelay {
		errs = append(errs, errors.New("gentle delay range is invalid"))
	}
	if c.Scan.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Storage.CheckpointFile == "" {
		errs = append(errs, errors.New("checkpoint file is required"))
	}
	switch strings.ToLower(c.Storage.FoundFormat) {
	case FormatCSV, FormatText:
	default:
		errs = append(errs, fmt.Errorf("unknown found format %q", c.Storage.FoundFormat))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// DataDirectory returns the configured data directory, falling back to the
// platform default, and creates it if needed
func (c *Config) DataDirectory() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		var err error
		dir, err = defaultDataDirectory()
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// CheckpointPath returns the absolute location of the checkpoint record
func (c *Config) CheckpointPath() (string, error) {
	return c.resolve(c.Storage.CheckpointFile)
}

// FoundPath returns the location of the found-output artifact
func (c *Config) FoundPath() (string, error) {
	name := c.Storage.FoundFile
	if name == "" {
		name = "ytfound.csv"
		if strings.EqualFold(c.Storage.FoundFormat, FormatText) {
			name = "ytfound.txt"
		}
	}
	return c.resolve(name)
}

func (c *Config) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := c.DataDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// defaultDataDirectory returns the appropriate data directory for the current OS
func defaultDataDirectory() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "ytscan"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "ytscan"), nil
	default:
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "ytscan"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "ytscan"), nil
	}
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Target.BaseURL = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Target.UserAgent = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Target.Timeout = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Scan.Concurrency = v
	}
	if v, ok := flags["gentle"].(bool); ok {
		c.Scan.Gentle = v
	}
	if v, ok := flags["rpm"].(int); ok && v >= 0 {
		c.Scan.RequestsPerMinute = v
	}
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := flags["checkpoint"].(string); ok && v != "" {
		c.Storage.CheckpointFile = v
	}
	if v, ok := flags["found-file"].(string); ok && v != "" {
		c.Storage.FoundFile = v
	}
	if v, ok := flags["found-format"].(string); ok && v != "" {
		c.Storage.FoundFormat = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".ytscan.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
