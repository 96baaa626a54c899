// Package config provides configuration management for the dataset engine,
// its CLI and its HTTP server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/paveg/datafilter/internal/codec"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "DATAFILTER_"

// Default configuration values
const (
	DefaultHistoryCapacity = 50
	DefaultSampleValues    = 3
	DefaultPreviewRows     = 50
	DefaultDataDir         = "data"
	DefaultOutputDir       = "output"
	DefaultCSVDelimiter    = ","
	DefaultJSONIndent      = 4
	DefaultYAMLIndent      = 2
	DefaultXMLRoot         = "data"
	DefaultXMLRecord       = "item"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultServerAddr      = ":8080"

	DefaultParallelThreshold = 1000
	DefaultMetricsMaxRecords = 1000
)

// Config represents the configuration of a datafilter process
type Config struct {
	// Engine Configuration
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity"` // Maximum undo/redo snapshots
	SampleValues    int `json:"sample_values" yaml:"sample_values"`       // Distinct text samples per field in reports
	PreviewRows     int `json:"preview_rows" yaml:"preview_rows"`         // Rows shown by table renderings and file previews

	// Parallel Analysis
	Workers           int `json:"workers" yaml:"workers"`                       // Analysis goroutines; 0 uses every CPU
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"` // Rows times fields before analysis fans out

	// File Locations
	DataDir   string `json:"data_dir" yaml:"data_dir"`     // Directory listed and read by the server
	OutputDir string `json:"output_dir" yaml:"output_dir"` // Directory the server saves into

	// Codec Configuration
	CSVDelimiter     string            `json:"csv_delimiter" yaml:"csv_delimiter"`         // Single-character CSV delimiter
	JSONIndent       int               `json:"json_indent" yaml:"json_indent"`             // Spaces per JSON nesting level
	YAMLIndent       int               `json:"yaml_indent" yaml:"yaml_indent"`             // Spaces per YAML nesting level
	XMLRoot          string            `json:"xml_root" yaml:"xml_root"`                   // XML document element
	XMLRecord        string            `json:"xml_record" yaml:"xml_record"`               // XML record element
	ExtensionAliases map[string]string `json:"extension_aliases" yaml:"extension_aliases"` // Extra extension -> format name
	DisabledFormats  []string          `json:"disabled_formats" yaml:"disabled_formats"`   // Formats reported as unavailable

	// Logging Configuration
	LogLevel  string `json:"log_level" yaml:"log_level"`   // debug, info, warn or error
	LogFormat string `json:"log_format" yaml:"log_format"` // text or json

	// Server Configuration
	ServerAddr        string `json:"server_addr" yaml:"server_addr"`                 // Listen address of the HTTP server
	MetricsEnabled    bool   `json:"metrics_enabled" yaml:"metrics_enabled"`         // Record operation metrics
	MetricsMaxRecords int    `json:"metrics_max_records" yaml:"metrics_max_records"` // Operations retained by the collector
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		HistoryCapacity:   DefaultHistoryCapacity,
		SampleValues:      DefaultSampleValues,
		PreviewRows:       DefaultPreviewRows,
		ParallelThreshold: DefaultParallelThreshold,
		DataDir:           DefaultDataDir,
		OutputDir:         DefaultOutputDir,
		CSVDelimiter:      DefaultCSVDelimiter,
		JSONIndent:        DefaultJSONIndent,
		YAMLIndent:        DefaultYAMLIndent,
		XMLRoot:           DefaultXMLRoot,
		XMLRecord:         DefaultXMLRecord,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		ServerAddr:        DefaultServerAddr,
		MetricsEnabled:    true,
		MetricsMaxRecords: DefaultMetricsMaxRecords,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("HistoryCapacity must be positive, got %d", c.HistoryCapacity)
	}

	if c.SampleValues < 0 {
		return fmt.Errorf("SampleValues must be non-negative, got %d", c.SampleValues)
	}

	if c.PreviewRows <= 0 {
		return fmt.Errorf("PreviewRows must be positive, got %d", c.PreviewRows)
	}

	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}

	if c.ParallelThreshold < 0 {
		return fmt.Errorf("ParallelThreshold must be non-negative, got %d", c.ParallelThreshold)
	}

	if c.MetricsMaxRecords <= 0 {
		return fmt.Errorf("MetricsMaxRecords must be positive, got %d", c.MetricsMaxRecords)
	}

	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("CSVDelimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if r, _ := utf8.DecodeRuneInString(c.CSVDelimiter); r == '"' || r == '\r' || r == '\n' {
		return fmt.Errorf("CSVDelimiter cannot be %q", c.CSVDelimiter)
	}

	if c.JSONIndent < 0 {
		return fmt.Errorf("JSONIndent must be non-negative, got %d", c.JSONIndent)
	}

	if c.YAMLIndent < 0 {
		return fmt.Errorf("YAMLIndent must be non-negative, got %d", c.YAMLIndent)
	}

	if c.XMLRoot == "" || c.XMLRecord == "" {
		return fmt.Errorf("XMLRoot and XMLRecord must be set")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LogFormat must be text or json, got %q", c.LogFormat)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = defaults.HistoryCapacity
	}
	if c.SampleValues == 0 {
		c.SampleValues = defaults.SampleValues
	}
	if c.PreviewRows == 0 {
		c.PreviewRows = defaults.PreviewRows
	}
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.CSVDelimiter == "" {
		c.CSVDelimiter = defaults.CSVDelimiter
	}
	if c.JSONIndent == 0 {
		c.JSONIndent = defaults.JSONIndent
	}
	if c.YAMLIndent == 0 {
		c.YAMLIndent = defaults.YAMLIndent
	}
	if c.XMLRoot == "" {
		c.XMLRoot = defaults.XMLRoot
	}
	if c.XMLRecord == "" {
		c.XMLRecord = defaults.XMLRecord
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.ServerAddr == "" {
		c.ServerAddr = defaults.ServerAddr
	}
	if c.MetricsMaxRecords == 0 {
		c.MetricsMaxRecords = defaults.MetricsMaxRecords
	}

	// Note: Boolean fields are intentionally not set to defaults here
	// This allows distinguishing between explicitly set false and unset values
	// Use NewConfig() directly if you need boolean defaults

	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML).
// Keys missing from the file keep their default values.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		return LoadFromJSON(data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables on top of the defaults
func LoadFromEnv() Config {
	return ApplyEnv(NewConfig())
}

// ApplyEnv overrides fields of config with DATAFILTER_* environment variables.
// Values that fail to parse are ignored.
func ApplyEnv(config Config) Config {
	envInt := func(name string, dst *int) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			if parsed, err := strconv.Atoi(val); err == nil {
				*dst = parsed
			}
		}
	}
	envString := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}

	envInt("HISTORY_CAPACITY", &config.HistoryCapacity)
	envInt("SAMPLE_VALUES", &config.SampleValues)
	envInt("PREVIEW_ROWS", &config.PreviewRows)
	envInt("JSON_INDENT", &config.JSONIndent)
	envInt("YAML_INDENT", &config.YAMLIndent)
	envInt("WORKERS", &config.Workers)
	envInt("PARALLEL_THRESHOLD", &config.ParallelThreshold)
	envInt("METRICS_MAX_RECORDS", &config.MetricsMaxRecords)
	envString("DATA_DIR", &config.DataDir)
	envString("OUTPUT_DIR", &config.OutputDir)
	envString("CSV_DELIMITER", &config.CSVDelimiter)
	envString("XML_ROOT", &config.XMLRoot)
	envString("XML_RECORD", &config.XMLRecord)
	envString("LOG_LEVEL", &config.LogLevel)
	envString("LOG_FORMAT", &config.LogFormat)
	envString("SERVER_ADDR", &config.ServerAddr)

	if val := os.Getenv(EnvPrefix + "METRICS_ENABLED"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsEnabled = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "DISABLED_FORMATS"); val != "" {
		config.DisabledFormats = splitList(val)
	}

	// DATAFILTER_EXTENSION_ALIASES=".tsv=csv,.dat=json"
	if val := os.Getenv(EnvPrefix + "EXTENSION_ALIASES"); val != "" {
		aliases := make(map[string]string)
		for _, pair := range splitList(val) {
			if ext, format, ok := strings.Cut(pair, "="); ok {
				aliases[strings.TrimSpace(ext)] = strings.TrimSpace(format)
			}
		}
		config.ExtensionAliases = aliases
	}

	return config
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves the effective configuration: defaults, then the optional
// config file, then .env and DATAFILTER_* variables. The result is validated.
func Load(filename string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	var config Config
	if filename == "" {
		config = LoadFromEnv()
	} else {
		fromFile, err := LoadFromFile(filename)
		if err != nil {
			return Config{}, err
		}
		config = ApplyEnv(fromFile)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// CodecOptions converts the codec settings into per-format options.
func (c Config) CodecOptions() codec.Options {
	opts := codec.DefaultOptions()
	if r, _ := utf8.DecodeRuneInString(c.CSVDelimiter); r != utf8.RuneError {
		opts.CSV.Delimiter = r
	}
	opts.JSON.Indent = c.JSONIndent
	opts.YAML.Indent = c.YAMLIndent
	if c.XMLRoot != "" {
		opts.XML.RootElement = c.XMLRoot
	}
	if c.XMLRecord != "" {
		opts.XML.RecordElement = c.XMLRecord
	}
	return opts
}

// NewRegistry builds a codec registry with the configured options, aliases
// and disabled formats.
func (c Config) NewRegistry(logger *slog.Logger) (*codec.Registry, error) {
	r := codec.NewRegistry(c.CodecOptions(), logger)
	for ext, format := range c.ExtensionAliases {
		if err := r.Alias(ext, format); err != nil {
			return nil, err
		}
	}
	for _, format := range c.DisabledFormats {
		r.Disable(format)
	}
	return r, nil
}

// ParseLogLevel maps a level name onto a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LogLevel must be debug, info, warn or error, got %q", level)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
