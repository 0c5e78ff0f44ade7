package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultURLTemplate is the EBI Proteins variation endpoint; {id} is replaced by the accession.
const DefaultURLTemplate = "https://www.ebi.ac.uk/proteins/api/variation/{id}?format=json"

// Config holds all pipeline configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" json:"input"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Partition PartitionConfig `yaml:"partition" json:"partition"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InputConfig locates the spreadsheet of identifiers.
type InputConfig struct {
	Path   string `yaml:"path" json:"path" validate:"required"`
	Column string `yaml:"column" json:"column" validate:"required"`
}

// FetchConfig configures the outbound API calls.
type FetchConfig struct {
	URLTemplate string `yaml:"url_template" json:"url_template" validate:"required,contains={id}"`
	Workers     int    `yaml:"workers" json:"workers" validate:"min=1,max=64"`
	Timeout     string `yaml:"timeout" json:"timeout"` // empty = no timeout
}

// PathsConfig holds the artifact folders exchanged between stages.
type PathsConfig struct {
	JSONDir string `yaml:"json_dir" json:"json_dir" validate:"required"`
	CSVDir  string `yaml:"csv_dir" json:"csv_dir" validate:"required"`
	SortDir string `yaml:"sort_dir" json:"sort_dir" validate:"required"`
}

// PartitionConfig configures the partitioner.
type PartitionConfig struct {
	Column           string `yaml:"column" json:"column" validate:"required"`
	ClearBeforeWrite bool   `yaml:"clear_before_write" json:"clear_before_write"`
}

// StoreConfig configures the run history database. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"required"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=console json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Path:   "data/uniprotids.xlsx",
			Column: "UniprotID",
		},
		Fetch: FetchConfig{
			URLTemplate: DefaultURLTemplate,
			Workers:     1,
		},
		Paths: PathsConfig{
			JSONDir: "data/JSON_files",
			CSVDir:  "data/Variations",
			SortDir: "data/sort",
		},
		Partition: PartitionConfig{
			Column:           "type",
			ClearBeforeWrite: true,
		},
		Store: StoreConfig{
			Path: "pipeline.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file over the defaults. A missing
// file is not an error. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VARIATION_INPUT"); v != "" {
		c.Input.Path = v
	}
	if v := os.Getenv("VARIATION_JSON_DIR"); v != "" {
		c.Paths.JSONDir = v
	}
	if v := os.Getenv("VARIATION_CSV_DIR"); v != "" {
		c.Paths.CSVDir = v
	}
	if v := os.Getenv("VARIATION_SORT_DIR"); v != "" {
		c.Paths.SortDir = v
	}
	if v := os.Getenv("VARIATION_URL_TEMPLATE"); v != "" {
		c.Fetch.URLTemplate = v
	}
	if v, ok := os.LookupEnv("VARIATION_DB"); ok {
		c.Store.Path = v
	}
	if v := os.Getenv("VARIATION_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// FetchTimeout parses fetch.timeout. Zero means the client never times out.
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.Fetch.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Fetch.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid fetch.timeout %q: %w", c.Fetch.Timeout, err)
	}
	return d, nil
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, err := c.FetchTimeout(); err != nil {
		return err
	}
	return nil
}

// formatValidationError turns validator errors into one readable message
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, e.Tag(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "contains":
			msgs = append(msgs, fmt.Sprintf("%s must contain %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
