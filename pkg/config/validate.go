package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/phone"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

// Validate clamps values that would make the engine misbehave and returns a
// note for every key it changed.
func (c *Config) Validate() []string {
	def := DefaultConfig()
	var fixes []string
	fix := func(key string, from, to any) {
		fixes = append(fixes, fmt.Sprintf("%s = %v is invalid, using %v", key, from, to))
	}

	if c.Server.MaxLimit < 1 {
		fix("server.max_limit", c.Server.MaxLimit, def.Server.MaxLimit)
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Server.LookupTimeoutMs < 1 {
		fix("server.lookup_timeout_ms", c.Server.LookupTimeoutMs, def.Server.LookupTimeoutMs)
		c.Server.LookupTimeoutMs = def.Server.LookupTimeoutMs
	}

	if c.Dict.MinWordLength < 1 {
		fix("dict.min_word_length", c.Dict.MinWordLength, def.Dict.MinWordLength)
		c.Dict.MinWordLength = def.Dict.MinWordLength
	}
	if c.Dict.MaxWords < 0 {
		fix("dict.max_words", c.Dict.MaxWords, 0)
		c.Dict.MaxWords = 0
	}
	if c.Dict.ChunkSize < 1 || c.Dict.ChunkSize > 65535 {
		fix("dict.chunk_size", c.Dict.ChunkSize, def.Dict.ChunkSize)
		c.Dict.ChunkSize = def.Dict.ChunkSize
	}

	e := &c.Engine
	if e.MinDigits < 1 {
		fix("engine.min_digits", e.MinDigits, def.Engine.MinDigits)
		e.MinDigits = def.Engine.MinDigits
	}
	if e.MaxDigits < e.MinDigits {
		fix("engine.max_digits", e.MaxDigits, e.MinDigits)
		e.MaxDigits = e.MinDigits
	}
	if e.ProtectedPrefix < 0 {
		fix("engine.protected_prefix", e.ProtectedPrefix, 0)
		e.ProtectedPrefix = 0
	}
	if e.CountryCode != "" && !utils.IsOnlyNumbers(e.CountryCode) {
		fix("engine.country_code", e.CountryCode, `""`)
		e.CountryCode = ""
	}
	if e.NationalLength < 0 {
		fix("engine.national_length", e.NationalLength, 0)
		e.NationalLength = 0
	}
	if e.MaxCandidates < 1 {
		fix("engine.max_candidates", e.MaxCandidates, def.Engine.MaxCandidates)
		e.MaxCandidates = def.Engine.MaxCandidates
	}
	if e.TopK < 1 || e.TopK > e.MaxCandidates {
		fix("engine.top_k", e.TopK, e.MaxCandidates)
		e.TopK = e.MaxCandidates
	}
	if e.MaxResults < 1 || e.MaxResults > e.TopK {
		fix("engine.max_results", e.MaxResults, e.TopK)
		e.MaxResults = e.TopK
	}
	if slices.ContainsFunc(e.DigitGrouping, func(n int) bool { return n < 1 }) {
		fix("engine.digit_grouping", e.DigitGrouping, "[]")
		e.DigitGrouping = nil
	}
	if e.WeightCoverage == 0 && e.WeightWords == 0 && e.WeightLongest == 0 {
		fix("engine.weight_*", 0, "defaults")
		e.WeightCoverage = def.Engine.WeightCoverage
		e.WeightWords = def.Engine.WeightWords
		e.WeightLongest = def.Engine.WeightLongest
	}

	switch c.Ranker.Kind {
	case RankerNone, RankerMock, RankerGemini:
	case RankerHTTP:
		if c.Ranker.Endpoint == "" {
			fix("ranker.kind", c.Ranker.Kind, RankerNone+" (no endpoint)")
			c.Ranker.Kind = RankerNone
		}
	default:
		fix("ranker.kind", c.Ranker.Kind, RankerNone)
		c.Ranker.Kind = RankerNone
	}
	if c.Ranker.TimeoutMs < 1 {
		fix("ranker.timeout_ms", c.Ranker.TimeoutMs, def.Ranker.TimeoutMs)
		c.Ranker.TimeoutMs = def.Ranker.TimeoutMs
	}

	switch c.Store.Kind {
	case StoreNone, StoreMemory, StoreSQLite:
	default:
		fix("store.kind", c.Store.Kind, def.Store.Kind)
		c.Store.Kind = def.Store.Kind
	}

	if c.CLI.DefaultLimit < 1 || c.CLI.DefaultLimit > e.MaxResults {
		fix("cli.default_limit", c.CLI.DefaultLimit, e.MaxResults)
		c.CLI.DefaultLimit = e.MaxResults
	}
	return fixes
}

// PhoneOptions converts the [engine] validation keys.
func (c *Config) PhoneOptions() phone.Options {
	return phone.Options{
		MinDigits:       c.Engine.MinDigits,
		MaxDigits:       c.Engine.MaxDigits,
		StripFormatting: c.Engine.StripFormatting,
		ProtectedPrefix: c.Engine.ProtectedPrefix,
		CountryCode:     c.Engine.CountryCode,
		NationalLength:  c.Engine.NationalLength,
	}
}

// EngineOptions converts the [dict], [engine] and [ranker] keys the engine
// reads.
func (c *Config) EngineOptions() vanity.Options {
	return vanity.Options{
		MinWordLength: c.Dict.MinWordLength,
		MaxCandidates: c.Engine.MaxCandidates,
		TopK:          c.Engine.TopK,
		MaxResults:    c.Engine.MaxResults,
		DigitGrouping: slices.Clone(c.Engine.DigitGrouping),
		Weights: vanity.Weights{
			Coverage: c.Engine.WeightCoverage,
			Words:    c.Engine.WeightWords,
			Longest:  c.Engine.WeightLongest,
		},
		RankTimeout:      c.RankTimeout(),
		CollaboratorName: c.Ranker.Kind,
	}
}

// RankTimeout returns ranker.timeout_ms as a duration.
func (c *Config) RankTimeout() time.Duration {
	return time.Duration(c.Ranker.TimeoutMs) * time.Millisecond
}

// LookupTimeout returns server.lookup_timeout_ms as a duration.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Server.LookupTimeoutMs) * time.Millisecond
}
