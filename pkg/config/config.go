/*
Package config manages TOML config for vanityserve.

The file lives at [UserConfigDir]/vanityserve/config.toml and is created with
defaults on first run. A file with type errors is not rejected outright: every
key that still parses is kept and the rest fall back to defaults.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/phone"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

// Ranker kinds.
const (
	RankerNone   = "none"
	RankerMock   = "mock" // offline demo, reverses the programmatic order
	RankerHTTP   = "http"
	RankerGemini = "gemini"
)

// Store kinds.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the entire config structure
type Config struct {
	Server ServerConfig `toml:"server"`
	Dict   DictConfig   `toml:"dict"`
	Engine EngineConfig `toml:"engine"`
	Ranker RankerConfig `toml:"ranker"`
	Store  StoreConfig  `toml:"store"`
	CLI    CliConfig    `toml:"cli"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	// MaxLimit caps the per-request result limit.
	MaxLimit int `toml:"max_limit"`
	// LookupTimeoutMs bounds a single request, ranking included.
	LookupTimeoutMs int `toml:"lookup_timeout_ms"`
}

// DictConfig holds corpus options.
type DictConfig struct {
	CorpusPath    string `toml:"corpus_path"`
	MinWordLength int    `toml:"min_word_length"`
	MaxWords      int    `toml:"max_words"`
	ChunkSize     int    `toml:"chunk_size"`
}

// EngineConfig holds number validation and candidate generation options.
type EngineConfig struct {
	MinDigits       int    `toml:"min_digits"`
	MaxDigits       int    `toml:"max_digits"`
	StripFormatting bool   `toml:"strip_formatting"`
	ProtectedPrefix int    `toml:"protected_prefix"`
	CountryCode     string `toml:"country_code"`
	NationalLength  int    `toml:"national_length"`

	MaxCandidates int   `toml:"max_candidates"`
	TopK          int   `toml:"top_k"`
	MaxResults    int   `toml:"max_results"`
	DigitGrouping []int `toml:"digit_grouping"`

	WeightCoverage float64 `toml:"weight_coverage"`
	WeightWords    float64 `toml:"weight_words"`
	WeightLongest  float64 `toml:"weight_longest"`
}

// RankerConfig selects the ranking collaborator.
type RankerConfig struct {
	Kind     string `toml:"kind"`
	Endpoint string `toml:"endpoint"`
	// APIKeyEnv names the variable holding the key; gemini defaults to
	// GEMINI_API_KEY, http sends no key when it is empty.
	APIKeyEnv string `toml:"api_key_env"`
	Model     string `toml:"model"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// StoreConfig selects where finished lookups are kept.
type StoreConfig struct {
	Kind string `toml:"kind"`
	Path string `toml:"path"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowSpeech   bool `toml:"show_speech"`
	ShowScores   bool `toml:"show_scores"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/vanityserve
// 2. ~/Library/Application Support/vanityserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", utils.AppDirName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", utils.AppDirName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/vanityserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	po := phone.DefaultOptions()
	vo := vanity.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			MaxLimit:        vo.MaxCandidates,
			LookupTimeoutMs: 5000,
		},
		Dict: DictConfig{
			CorpusPath:    "data/words.txt",
			MinWordLength: vo.MinWordLength,
			MaxWords:      0,
			ChunkSize:     10000,
		},
		Engine: EngineConfig{
			MinDigits:       po.MinDigits,
			MaxDigits:       po.MaxDigits,
			StripFormatting: po.StripFormatting,
			ProtectedPrefix: po.ProtectedPrefix,
			CountryCode:     po.CountryCode,
			NationalLength:  po.NationalLength,
			MaxCandidates:   vo.MaxCandidates,
			TopK:            vo.TopK,
			MaxResults:      vo.MaxResults,
			WeightCoverage:  vo.Weights.Coverage,
			WeightWords:     vo.Weights.Words,
			WeightLongest:   vo.Weights.Longest,
		},
		Ranker: RankerConfig{
			Kind:      RankerNone,
			TimeoutMs: int(vanity.DefaultRankTimeout / time.Millisecond),
		},
		Store: StoreConfig{
			Kind: StoreMemory,
		},
		CLI: CliConfig{
			DefaultLimit: vo.MaxResults,
			ShowSpeech:   true,
			ShowScores:   false,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file and clamps the result with Validate.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config, err = tryPartialParse(configPath)
		if err != nil {
			return nil, err
		}
	}
	for _, fix := range config.Validate() {
		log.Warnf("Config %s: %s", configPath, fix)
	}
	return config, nil
}

// tryPartialParse keeps every key that decodes with the right type.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "ranker"); ok {
		extractRankerConfig(section, &config.Ranker)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "lookup_timeout_ms"); ok {
		server.LookupTimeoutMs = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "corpus_path"); ok {
		dict.CorpusPath = val
	}
	if val, ok := utils.ExtractInt64(data, "min_word_length"); ok {
		dict.MinWordLength = val
	}
	if val, ok := utils.ExtractInt64(data, "max_words"); ok {
		dict.MaxWords = val
	}
	if val, ok := utils.ExtractInt64(data, "chunk_size"); ok {
		dict.ChunkSize = val
	}
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractInt64(data, "min_digits"); ok {
		engine.MinDigits = val
	}
	if val, ok := utils.ExtractInt64(data, "max_digits"); ok {
		engine.MaxDigits = val
	}
	if val, ok := utils.ExtractBool(data, "strip_formatting"); ok {
		engine.StripFormatting = val
	}
	if val, ok := utils.ExtractInt64(data, "protected_prefix"); ok {
		engine.ProtectedPrefix = val
	}
	if val, ok := utils.ExtractString(data, "country_code"); ok {
		engine.CountryCode = val
	}
	if val, ok := utils.ExtractInt64(data, "national_length"); ok {
		engine.NationalLength = val
	}
	if val, ok := utils.ExtractInt64(data, "max_candidates"); ok {
		engine.MaxCandidates = val
	}
	if val, ok := utils.ExtractInt64(data, "top_k"); ok {
		engine.TopK = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		engine.MaxResults = val
	}
	if val, ok := utils.ExtractInts(data, "digit_grouping"); ok {
		engine.DigitGrouping = val
	}
	if val, ok := utils.ExtractFloat(data, "weight_coverage"); ok {
		engine.WeightCoverage = val
	}
	if val, ok := utils.ExtractFloat(data, "weight_words"); ok {
		engine.WeightWords = val
	}
	if val, ok := utils.ExtractFloat(data, "weight_longest"); ok {
		engine.WeightLongest = val
	}
}

func extractRankerConfig(data map[string]any, ranker *RankerConfig) {
	if val, ok := utils.ExtractString(data, "kind"); ok {
		ranker.Kind = val
	}
	if val, ok := utils.ExtractString(data, "endpoint"); ok {
		ranker.Endpoint = val
	}
	if val, ok := utils.ExtractString(data, "api_key_env"); ok {
		ranker.APIKeyEnv = val
	}
	if val, ok := utils.ExtractString(data, "model"); ok {
		ranker.Model = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout_ms"); ok {
		ranker.TimeoutMs = val
	}
}

func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractString(data, "kind"); ok {
		store.Kind = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		store.Path = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_speech"); ok {
		cli.ShowSpeech = val
	}
	if val, ok := utils.ExtractBool(data, "show_scores"); ok {
		cli.ShowScores = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the server limits and saves to file. Nil arguments are left
// alone.
func (c *Config) Update(configPath string, maxLimit, lookupTimeoutMs *int) error {
	if maxLimit != nil {
		c.Server.MaxLimit = *maxLimit
	}
	if lookupTimeoutMs != nil {
		c.Server.LookupTimeoutMs = *lookupTimeoutMs
	}
	c.Validate()
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
