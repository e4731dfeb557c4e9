// Copyright 2025 The vanityserve Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the vanity number server and its interactive CLI.

vanityserve turns caller phone numbers into memorable letter renderings using
the telephone keypad. It indexes a word corpus in a Patricia trie, finds every
dictionary word spellable over the digits, combines non-overlapping words into
full-length candidates and ranks them, optionally asking an LLM or a remote
ranking service for a second opinion. Results are formatted for display
("1-800-FLOWERS") and for speech.

# Usage

Start the MessagePack IPC server with the configured corpus:

	vanityserve

Use a custom corpus and enable debug logging:

	vanityserve -corpus /path/to/words.txt -d

Run the CLI for interactive testing:

	vanityserve -c -limit 3

The corpus is either a plain word list, one word per line, or a directory of
dict_*.bin chunks produced by vanitydict.

# Configuration

Configuration lives in [UserConfigDir]/vanityserve/config.toml and is created
with defaults on first run:

	[engine]
	protected_prefix = 3
	country_code = "1"
	max_candidates = 10
	top_k = 10
	max_results = 5

	[ranker]
	kind = "gemini"  # none, mock, http or gemini
	timeout_ms = 2000

	[store]
	kind = "sqlite"  # none, memory or sqlite
	path = "vanity.db"

A file with type errors is partially recovered: valid keys are kept.

# IPC Protocol

The server reads msgpack maps from stdin and writes one map per request to
stdout. See package server for the message shapes.

	{"id": "req1", "n": "(212) 555-2255", "l": 3}

# Command Line Flags

	-config string
	    Path to a config file
	-corpus string
	    Word list file or chunk directory (default from config)
	-d  Enable debug mode with detailed logging
	-c  Run CLI mode instead of the IPC server
	-limit int
	    Number of renderings to print in CLI mode
	-words int
	    Maximum words to index (0 for all)
	-ranker string
	    Override [ranker] kind
	-store string
	    Override [store] kind
	-rebuild-config
	    Rewrite the default config file and exit
	-version
	    Show current version
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/cli"
	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/config"
	"github.com/vanityserve/vanityserve/pkg/dictionary"
	"github.com/vanityserve/vanityserve/pkg/lookup"
	"github.com/vanityserve/vanityserve/pkg/server"
	"github.com/vanityserve/vanityserve/pkg/store"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

const (
	Version = "0.3.0"
	AppName = "vanityserve"
	gh      = "https://github.com/vanityserve/vanityserve"
)

// sigHandler cancels the root context on SIGINT or SIGTERM, then exits.
func sigHandler(cancel context.CancelFunc, cleanup func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		cleanup()
		os.Exit(0)
	}()
}

// main only wires packages together; the logic lives in pkg/.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "", "Path to a config file")
	corpusPath := flag.String("corpus", "", "Word list file or directory of dict_*.bin chunks (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of renderings to print in CLI mode (default from config)")
	wordLimit := flag.Int("words", -1, "Maximum number of words to index (0 for all, default from config)")
	rankerKind := flag.String("ranker", "", "Override the ranker kind: none, mock, http or gemini")
	storeKind := flag.String("store", "", "Override the store kind: none, memory or sqlite")
	rebuild := flag.Bool("rebuild-config", false, "Rewrite the default config file and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// stdout is the IPC stream.
	if *debugMode {
		log.SetDefault(logger.NewWithConfig("", log.DebugLevel, true, true, log.TextFormatter))
	} else {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.WarnLevel)
	}

	if *rebuild {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Print("Config rebuilt", "path", config.GetActiveConfigPath(""))
		return
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *corpusPath, *limit, *wordLimit, *rankerKind, *storeKind)
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	configDir := filepath.Dir(config.GetActiveConfigPath(configPath))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A missing or unreadable corpus is fatal.
	resolved := cfg.Dict.CorpusPath
	if pathResolver, err := utils.NewPathResolver(); err == nil {
		resolved = pathResolver.GetCorpusPath(cfg.Dict.CorpusPath)
	} else {
		log.Warnf("Failed to initialize path resolver: %v", err)
	}
	provider, err := dictionary.OpenCorpus(resolved)
	if err != nil {
		log.Fatalf("Failed to open corpus: %v", err)
	}
	index, err := dictionary.Load(ctx, provider,
		dictionary.WithMinWordLength(cfg.Dict.MinWordLength),
		dictionary.WithMaxWords(cfg.Dict.MaxWords))
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	log.Debug("Corpus loaded", "path", resolved, "words", index.Len())

	collaborator, err := newCollaborator(ctx, cfg.Ranker)
	if err != nil {
		log.Warnf("Ranking collaborator unavailable, using programmatic ranking: %v", err)
		cfg.Ranker.Kind = config.RankerNone
		collaborator = nil
	}

	results, err := openStore(cfg.Store, configDir)
	if err != nil {
		log.Warnf("Result store unavailable, falling back to memory: %v", err)
		cfg.Store.Kind = config.StoreMemory
		results = store.NewMemory()
	}
	closeStore := func() {
		if results != nil {
			if err := results.Close(); err != nil {
				log.Errorf("Closing store: %v", err)
			}
		}
	}
	defer closeStore()
	sigHandler(cancel, closeStore)

	engine, err := vanity.NewEngine(index, cfg.EngineOptions(), collaborator)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	opts := []lookup.Option{lookup.WithPhoneOptions(cfg.PhoneOptions())}
	if results != nil {
		opts = append(opts, lookup.WithStore(results))
	}
	svc := lookup.New(engine, opts...)

	if *cliMode {
		log.SetReportTimestamp(false)
		handler := cli.NewInputHandler(svc, cli.Options{
			Limit:      cfg.CLI.DefaultLimit,
			ShowSpeech: cfg.CLI.ShowSpeech,
			ShowScores: cfg.CLI.ShowScores,
			Timeout:    cfg.LookupTimeout(),
			Words:      index.Len(),
		})
		if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("CLI error: %v", err)
			closeStore()
			os.Exit(1)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(svc, cfg, configPath, server.Info{
		Words:  index.Len(),
		Corpus: resolved,
		Ranker: cfg.Ranker.Kind,
		Store:  cfg.Store.Kind,
	})
	showStartupInfo(resolved, index.Len(), cfg)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Server stopped: %v", err)
		closeStore()
		os.Exit(1)
	}
}

// applyFlags lets command line flags override the loaded config.
func applyFlags(cfg *config.Config, corpus string, limit, words int, rankerKind, storeKind string) {
	if corpus != "" {
		cfg.Dict.CorpusPath = corpus
	}
	if limit > 0 {
		cfg.CLI.DefaultLimit = limit
	}
	if words >= 0 {
		cfg.Dict.MaxWords = words
	}
	if rankerKind != "" {
		cfg.Ranker.Kind = rankerKind
	}
	if storeKind != "" {
		cfg.Store.Kind = storeKind
	}
	for _, fix := range cfg.Validate() {
		log.Warn(fix)
	}
}

func printVersion() {
	l := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ vanityserve ] Memorable words for phone numbers")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo prints basic info about the init process to stderr.
func showStartupInfo(corpus string, words int, cfg *config.Config) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	log.Print("===========")
	log.Print(" " + AppName + " ")
	log.Print("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("corpus: ( %s ), %s words", corpus, utils.FormatWithCommas(words))
	log.Infof("ranker: %s, store: %s", cfg.Ranker.Kind, cfg.Store.Kind)
	log.Info("status: ready")
	log.Print("===========")
	log.Print("Press Ctrl+C to exit")
}
