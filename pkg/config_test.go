package dupsweep

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	// Create a temporary directory for testing
	tempDir := t.TempDir()

	// Load config (should create default)
	config, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	opts := config.ScanOptions()
	if !reflect.DeepEqual(opts, DefaultScanOptions()) {
		t.Errorf("Expected default scan options %+v, got %+v", DefaultScanOptions(), opts)
	}

	deleteConfig := config.GetDeleteConfig()
	if deleteConfig.Workers != DefaultDeleteWorkers || deleteConfig.DryRun {
		t.Errorf("Unexpected delete defaults: %+v", deleteConfig)
	}

	if format := config.GetOutputConfig().Format; format != "human" {
		t.Errorf("Expected default output format 'human', got '%s'", format)
	}

	if listen := config.GetServerConfig().Listen; listen != "127.0.0.1:5000" {
		t.Errorf("Expected default listen address, got '%s'", listen)
	}

	// Verify config file was created
	configPath := filepath.Join(tempDir, "config")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
	if config.Path() != configPath {
		t.Errorf("Expected config path %s, got %s", configPath, config.Path())
	}
}

func TestConfigExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dupsweep.ini")

	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file at %s: %v", path, err)
	}
}

func TestConfigOverrides(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Apply multiple overrides
	err = config.ApplyOverrides([]string{
		"hash:sha512",
		"workers:8",
		"extensions:.jpg, PNG",
		"chunk_size:1M",
		"max_file_size:unlimited",
		"keep:newest",
		"size_prefilter:false",
		"format:json",
		"level:2",
		"debug:scan,delete",
		"dry_run:true",
		"delete_workers:2",
	})
	if err != nil {
		t.Fatalf("Failed to apply overrides: %v", err)
	}

	opts := config.ScanOptions()
	if opts.HashAlgorithm != "sha512" {
		t.Errorf("Expected hash 'sha512', got '%s'", opts.HashAlgorithm)
	}
	if opts.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", opts.Workers)
	}
	if !reflect.DeepEqual(opts.Extensions, []string{".jpg", ".png"}) {
		t.Errorf("Expected normalised extensions, got %v", opts.Extensions)
	}
	if opts.ChunkSize != 1024*1024 {
		t.Errorf("Expected 1M chunk, got %d", opts.ChunkSize)
	}
	if opts.MaxFileSize != 0 {
		t.Errorf("Expected no size ceiling, got %d", opts.MaxFileSize)
	}
	if opts.KeepPolicy != KeepNewest {
		t.Errorf("Expected keep 'newest', got '%s'", opts.KeepPolicy)
	}
	if opts.SizePrefilter {
		t.Error("Expected size prefilter disabled")
	}

	if format := config.GetOutputConfig().Format; format != "json" {
		t.Errorf("Expected output format 'json' after override, got '%s'", format)
	}
	verbose := config.GetVerboseConfig()
	if verbose.Level != 2 {
		t.Errorf("Expected verbose level 2 after override, got %d", verbose.Level)
	}
	if verbose.Debug != "scan,delete" {
		t.Errorf("Expected debug flags 'scan,delete' after override, got '%s'", verbose.Debug)
	}
	deleteConfig := config.GetDeleteConfig()
	if !deleteConfig.DryRun || deleteConfig.Workers != 2 {
		t.Errorf("Unexpected delete config after override: %+v", deleteConfig)
	}
}

func TestConfigInvalidOverrides(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	for _, override := range []string{
		"nocolon",
		"bogus:1",
		"hash:sha1",
		"chunk_size:1K",
		"workers:0",
		"keep:largest",
		"size_prefilter:maybe",
		"ignore:(",
		"level:9",
		"format:xml",
	} {
		if err := config.ApplyOverrides([]string{override}); err == nil {
			t.Errorf("Expected error for override '%s'", override)
		}
	}
}

func TestConfigPersistence(t *testing.T) {
	tempDir := t.TempDir()

	config, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Set("ignore", `\.git/, ^tmp/`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := config.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	patterns := reloaded.ScanOptions().IgnorePatterns
	if !reflect.DeepEqual(patterns, []string{`\.git/`, `^tmp/`}) {
		t.Errorf("Expected persisted ignore patterns, got %v", patterns)
	}

	value, err := reloaded.Get("ignore")
	if err != nil || value == "" {
		t.Errorf("Expected Get to return stored value, got '%s' (%v)", value, err)
	}
	if _, err := reloaded.Get("nonsense"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()
	if err := config.Save(); err == nil {
		t.Error("Expected Save without a path to fail")
	}

	path := filepath.Join(t.TempDir(), "saved")
	if err := config.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	if config.Path() != path {
		t.Errorf("Expected path %s, got %s", path, config.Path())
	}
}

func TestHashAlgorithmValidation(t *testing.T) {
	testCases := []struct {
		algorithm string
		valid     bool
	}{
		{"sha1", false},
		{"sha256", true},
		{"SHA256", true},
		{"sha512", true},
		{"md5", false},
		{"", false},
	}

	for _, tc := range testCases {
		err := ValidateHashAlgorithm(tc.algorithm)
		if tc.valid && err != nil {
			t.Errorf("Expected %q to be valid, got %v", tc.algorithm, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("Expected %q to be invalid", tc.algorithm)
		}
	}
}

func TestValidators(t *testing.T) {
	if err := ValidateChunkSize(MinChunkSize); err != nil {
		t.Errorf("Expected minimum chunk size to be valid: %v", err)
	}
	if err := ValidateChunkSize(MaxChunkSize + 1); err == nil {
		t.Error("Expected oversized chunk to be invalid")
	}
	if err := ValidateWorkers(MaxWorkers); err != nil {
		t.Errorf("Expected %d workers to be valid: %v", MaxWorkers, err)
	}
	if err := ValidateWorkers(0); err == nil {
		t.Error("Expected 0 workers to be invalid")
	}
	for _, policy := range []string{"oldest", "NEWEST", "path"} {
		if err := ValidateKeepPolicy(policy); err != nil {
			t.Errorf("Expected policy %s to be valid: %v", policy, err)
		}
	}
	if err := ValidateOutputFormat("fdupes"); err == nil {
		t.Error("Expected fdupes output to be invalid")
	}
	if err := ValidateVerboseLevel(-1); err == nil {
		t.Error("Expected negative verbose level to be invalid")
	}
}

func TestConfigKeys(t *testing.T) {
	keys := ConfigKeys()
	if len(keys) != len(overrideKeys) {
		t.Fatalf("Expected %d keys, got %d: %v", len(overrideKeys), len(keys), keys)
	}
	if keys[0] != "hash" || keys[len(keys)-1] != "listen" {
		t.Errorf("Expected keys in file order, got %v", keys)
	}

	config := NewDefaultConfig()
	for _, key := range keys {
		if _, err := config.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}
}
