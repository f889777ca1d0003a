package dupsweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// DefaultConfigName is the file LoadConfig looks for inside a config directory
const DefaultConfigName = "config"

// Config represents the dupsweep configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// DeleteConfig represents deletion defaults
type DeleteConfig struct {
	Workers int
	DryRun  bool
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // human or json
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // 0=quiet, 1=basic, 2=detailed, 3=trace
	Debug string // comma-separated debug flags
}

// ServerConfig represents the HTTP API settings
type ServerConfig struct {
	Listen string
}

// configDefaults lists every key written to a fresh config file, by section
var configDefaults = []struct {
	section string
	keys    [][2]string
}{
	{"scan", [][2]string{
		{"hash", DefaultHashAlgorithm},
		{"chunk_size", "64K"},
		{"max_file_size", "100M"},
		{"extensions", ""},
		{"workers", strconv.Itoa(DefaultHashWorkers)},
		{"size_prefilter", "true"},
		{"keep", KeepOldest},
		{"ignore", ""},
	}},
	{"delete", [][2]string{
		{"workers", strconv.Itoa(DefaultDeleteWorkers)},
		{"dry_run", "false"},
	}},
	{"verbose", [][2]string{
		{"level", "0"},
		{"debug", ""},
	}},
	{"output", [][2]string{
		{"format", "human"},
	}},
	{"server", [][2]string{
		{"listen", "127.0.0.1:5000"},
	}},
}

// overrideKeys maps ApplyOverrides keys onto section and key
var overrideKeys = map[string][2]string{
	"hash":           {"scan", "hash"},
	"chunk_size":     {"scan", "chunk_size"},
	"max_file_size":  {"scan", "max_file_size"},
	"extensions":     {"scan", "extensions"},
	"workers":        {"scan", "workers"},
	"size_prefilter": {"scan", "size_prefilter"},
	"keep":           {"scan", "keep"},
	"ignore":         {"scan", "ignore"},
	"delete_workers": {"delete", "workers"},
	"dry_run":        {"delete", "dry_run"},
	"level":          {"verbose", "level"},
	"debug":          {"verbose", "debug"},
	"format":         {"output", "format"},
	"listen":         {"server", "listen"},
}

// LoadConfig loads the config file at path, writing a default one if it does
// not exist yet. A directory path is resolved to <dir>/config.
func LoadConfig(path string) (*Config, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultConfigName)
	}

	cfg := &Config{configPath: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile
	return cfg, nil
}

// NewDefaultConfig returns an in-memory config holding the defaults. Save
// writes nowhere until a path is set with SaveTo.
func NewDefaultConfig() *Config {
	cfg := &Config{ini: ini.Empty()}
	_ = cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() error {
	for _, def := range configDefaults {
		section, err := c.ini.NewSection(def.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", def.section, err)
		}
		for _, kv := range def.keys {
			if _, err := section.NewKey(kv[0], kv[1]); err != nil {
				return fmt.Errorf("failed to set default %s.%s: %w", def.section, kv[0], err)
			}
		}
	}
	return nil
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) value(section, key string) (string, bool) {
	if !c.ini.HasSection(section) {
		return "", false
	}
	s := c.ini.Section(section)
	if !s.HasKey(key) {
		return "", false
	}
	return strings.TrimSpace(s.Key(key).String()), true
}

// ScanOptions builds scan options from the [scan] section. Missing or
// unparseable values fall back to the defaults.
func (c *Config) ScanOptions() ScanOptions {
	opts := DefaultScanOptions()

	if v, ok := c.value("scan", "hash"); ok && v != "" {
		opts.HashAlgorithm = strings.ToLower(v)
	}
	if v, ok := c.value("scan", "chunk_size"); ok && v != "" {
		if n, err := ParseHumanSize(v); err == nil {
			opts.ChunkSize = int(n)
		}
	}
	if v, ok := c.value("scan", "max_file_size"); ok {
		switch v {
		case "", "0", "none", "unlimited":
			opts.MaxFileSize = 0
		default:
			if n, err := ParseHumanSize(v); err == nil {
				opts.MaxFileSize = n
			}
		}
	}
	if v, ok := c.value("scan", "extensions"); ok {
		opts.Extensions = NormaliseExtensions(SplitList(v))
	}
	if v, ok := c.value("scan", "workers"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Workers = n
		}
	}
	if v, ok := c.value("scan", "size_prefilter"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.SizePrefilter = b
		}
	}
	if v, ok := c.value("scan", "keep"); ok && v != "" {
		opts.KeepPolicy = strings.ToLower(v)
	}
	if v, ok := c.value("scan", "ignore"); ok {
		opts.IgnorePatterns = SplitList(v)
	}

	return opts
}

// GetDeleteConfig returns the deletion configuration
func (c *Config) GetDeleteConfig() *DeleteConfig {
	deleteConfig := &DeleteConfig{
		Workers: DefaultDeleteWorkers, // fallback default
	}

	if v, ok := c.value("delete", "workers"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			deleteConfig.Workers = n
		}
	}
	if v, ok := c.value("delete", "dry_run"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			deleteConfig.DryRun = b
		}
	}
	return deleteConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{Format: "human"}
	if v, ok := c.value("output", "format"); ok && v != "" {
		outputConfig.Format = strings.ToLower(v)
	}
	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}
	if v, ok := c.value("verbose", "level"); ok {
		if level, err := strconv.Atoi(v); err == nil {
			verboseConfig.Level = level
		}
	}
	if v, ok := c.value("verbose", "debug"); ok {
		verboseConfig.Debug = v
	}
	return verboseConfig
}

// GetServerConfig returns the HTTP API configuration
func (c *Config) GetServerConfig() *ServerConfig {
	serverConfig := &ServerConfig{Listen: "127.0.0.1:5000"}
	if v, ok := c.value("server", "listen"); ok && v != "" {
		serverConfig.Listen = v
	}
	return serverConfig
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config has no file path")
	}
	return c.ini.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path and remembers it
func (c *Config) SaveTo(path string) error {
	c.configPath = path
	return c.Save()
}

// Set validates and stores a single key, using the override key names
func (c *Config) Set(key, value string) error {
	target, ok := overrideKeys[key]
	if !ok {
		return fmt.Errorf("unsupported config key '%s' (supported: %s)", key, supportedOverrideKeys())
	}
	if err := validateConfigValue(key, value); err != nil {
		return err
	}
	c.ini.Section(target[0]).Key(target[1]).SetValue(value)
	return nil
}

// Get returns the stored value for an override key
func (c *Config) Get(key string) (string, error) {
	target, ok := overrideKeys[key]
	if !ok {
		return "", fmt.Errorf("unsupported config key '%s' (supported: %s)", key, supportedOverrideKeys())
	}
	v, _ := c.value(target[0], target[1])
	return v, nil
}

// ApplyOverrides applies command-line overrides to the configuration.
// Accepts strings like "hash:sha512", "workers:8", "format:json", "level:2".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}
		if err := c.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return err
		}
	}
	return nil
}

// ConfigKeys lists the settable keys in config file order
func ConfigKeys() []string {
	keys := make([]string, 0, len(overrideKeys))
	for _, def := range configDefaults {
		for _, kv := range def.keys {
			for name, target := range overrideKeys {
				if target[0] == def.section && target[1] == kv[0] {
					keys = append(keys, name)
				}
			}
		}
	}
	return keys
}

func supportedOverrideKeys() string {
	return strings.Join(ConfigKeys(), ", ")
}

func validateConfigValue(key, value string) error {
	switch key {
	case "hash":
		return ValidateHashAlgorithm(value)
	case "chunk_size":
		n, err := ParseHumanSize(value)
		if err != nil {
			return err
		}
		return ValidateChunkSize(int(n))
	case "max_file_size":
		switch value {
		case "", "0", "none", "unlimited":
			return nil
		}
		_, err := ParseHumanSize(value)
		return err
	case "workers", "delete_workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid worker count '%s': %w", value, err)
		}
		return ValidateWorkers(n)
	case "size_prefilter", "dry_run":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid boolean '%s' for %s", value, key)
		}
	case "keep":
		return ValidateKeepPolicy(value)
	case "ignore":
		for _, p := range SplitList(value) {
			if err := ValidatePattern(p); err != nil {
				return fmt.Errorf("invalid ignore pattern '%s': %w", p, err)
			}
		}
	case "level":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid verbose level '%s': %w", value, err)
		}
		return ValidateVerboseLevel(n)
	case "format":
		return ValidateOutputFormat(value)
	}
	return nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha256, sha512)", algorithm)
	}
	return nil
}

// ValidateChunkSize validates the hashing read buffer size
func ValidateChunkSize(size int) error {
	if size < MinChunkSize || size > MaxChunkSize {
		return fmt.Errorf("chunk size %d out of range (%s to %s)", size,
			FormatSize(MinChunkSize), FormatSize(MaxChunkSize))
	}
	return nil
}

// ValidateWorkers validates that a worker count is reasonable
func ValidateWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", workers)
	}
	if workers > MaxWorkers {
		return fmt.Errorf("workers should not exceed %d, got: %d", MaxWorkers, workers)
	}
	return nil
}

// ValidateKeepPolicy validates an original selection policy
func ValidateKeepPolicy(policy string) error {
	switch strings.ToLower(policy) {
	case KeepOldest, KeepNewest, KeepPath:
		return nil
	default:
		return fmt.Errorf("unsupported keep policy: %s (supported: oldest, newest, path)", policy)
	}
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}
