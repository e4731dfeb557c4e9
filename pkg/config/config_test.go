package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	if fixes := c.Validate(); len(fixes) != 0 {
		t.Errorf("default config needed fixes: %v", fixes)
	}
	if diff := cmp.Diff(DefaultConfig(), c); diff != "" {
		t.Errorf("Validate changed defaults (-want +got):\n%s", diff)
	}
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	c, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("saved config differs from loaded (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, `
[engine]
top_k = 4
max_results = 3
digit_grouping = [3, 4]
weight_words = 25.0

[ranker]
kind = "gemini"
timeout_ms = 1500

[store]
kind = "sqlite"
path = "/var/lib/vanity.db"
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.TopK != 4 || c.Engine.MaxResults != 3 {
		t.Errorf("engine = %+v", c.Engine)
	}
	if diff := cmp.Diff([]int{3, 4}, c.Engine.DigitGrouping); diff != "" {
		t.Errorf("digit_grouping (-want +got):\n%s", diff)
	}
	if c.Ranker.Kind != RankerGemini || c.RankTimeout() != 1500*time.Millisecond {
		t.Errorf("ranker = %+v", c.Ranker)
	}
	if c.Store.Kind != StoreSQLite || c.Store.Path != "/var/lib/vanity.db" {
		t.Errorf("store = %+v", c.Store)
	}
	// Untouched keys keep their defaults.
	if c.Engine.WeightCoverage != DefaultConfig().Engine.WeightCoverage {
		t.Errorf("weight_coverage = %v", c.Engine.WeightCoverage)
	}

	opts := c.EngineOptions()
	if opts.TopK != 4 || opts.Weights.Words != 25 || opts.CollaboratorName != RankerGemini {
		t.Errorf("EngineOptions = %+v", opts)
	}
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// max_candidates has the wrong type, so strict decoding fails.
	path := writeFile(t, `
[engine]
max_candidates = "lots"
top_k = 6
country_code = "44"
national_length = 10

[cli]
show_scores = true
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if c.Engine.MaxCandidates != def.Engine.MaxCandidates {
		t.Errorf("max_candidates = %d, want default %d", c.Engine.MaxCandidates, def.Engine.MaxCandidates)
	}
	if c.Engine.TopK != 6 || c.Engine.CountryCode != "44" || !c.CLI.ShowScores {
		t.Errorf("recovered keys lost: %+v %+v", c.Engine, c.CLI)
	}
	po := c.PhoneOptions()
	if po.CountryCode != "44" || po.ProtectedPrefix != def.Engine.ProtectedPrefix {
		t.Errorf("PhoneOptions = %+v", po)
	}
}

func TestLoadConfigUnparsable(t *testing.T) {
	path := writeFile(t, "[engine\nthis is not toml")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("unparsable file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, *Config)
	}{
		{
			name:   "top_k above max_candidates",
			mutate: func(c *Config) { c.Engine.MaxCandidates = 3; c.Engine.TopK = 8; c.Engine.MaxResults = 5 },
			check: func(t *testing.T, c *Config) {
				if c.Engine.TopK != 3 || c.Engine.MaxResults != 3 {
					t.Errorf("top_k = %d, max_results = %d", c.Engine.TopK, c.Engine.MaxResults)
				}
			},
		},
		{
			name:   "max_digits below min_digits",
			mutate: func(c *Config) { c.Engine.MinDigits = 10; c.Engine.MaxDigits = 7 },
			check: func(t *testing.T, c *Config) {
				if c.Engine.MaxDigits != 10 {
					t.Errorf("max_digits = %d", c.Engine.MaxDigits)
				}
			},
		},
		{
			name:   "non-positive grouping",
			mutate: func(c *Config) { c.Engine.DigitGrouping = []int{3, 0, 4} },
			check: func(t *testing.T, c *Config) {
				if c.Engine.DigitGrouping != nil {
					t.Errorf("digit_grouping = %v", c.Engine.DigitGrouping)
				}
			},
		},
		{
			name:   "http ranker without endpoint",
			mutate: func(c *Config) { c.Ranker.Kind = RankerHTTP },
			check: func(t *testing.T, c *Config) {
				if c.Ranker.Kind != RankerNone {
					t.Errorf("ranker.kind = %q", c.Ranker.Kind)
				}
			},
		},
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Store.Kind = "redis" },
			check: func(t *testing.T, c *Config) {
				if c.Store.Kind != StoreMemory {
					t.Errorf("store.kind = %q", c.Store.Kind)
				}
			},
		},
		{
			name:   "country code with letters",
			mutate: func(c *Config) { c.Engine.CountryCode = "+1" },
			check: func(t *testing.T, c *Config) {
				if c.Engine.CountryCode != "" {
					t.Errorf("country_code = %q", c.Engine.CountryCode)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if fixes := c.Validate(); len(fixes) == 0 {
				t.Error("Validate reported no fixes")
			}
			tt.check(t, c)
		})
	}
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	c := DefaultConfig()
	limit, timeout := 7, 900
	if err := c.Update(path, &limit, &timeout); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.MaxLimit != 7 || loaded.LookupTimeout() != 900*time.Millisecond {
		t.Errorf("server = %+v", loaded.Server)
	}
}
