package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanityserve/vanityserve/pkg/config"
	"github.com/vanityserve/vanityserve/pkg/ranking/httpranker"
	"github.com/vanityserve/vanityserve/pkg/ranking/mock"
	"github.com/vanityserve/vanityserve/pkg/store"
)

func TestNewCollaborator(t *testing.T) {
	t.Setenv("VANITY_TEST_EMPTY_KEY", "")
	ctx := context.Background()

	if c, err := newCollaborator(ctx, config.RankerConfig{Kind: config.RankerNone}); c != nil || err != nil {
		t.Errorf("none = %v, %v", c, err)
	}
	if c, err := newCollaborator(ctx, config.RankerConfig{Kind: config.RankerMock}); err != nil {
		t.Error(err)
	} else if _, ok := c.(mock.Reverse); !ok {
		t.Errorf("mock = %T", c)
	}
	c, err := newCollaborator(ctx, config.RankerConfig{Kind: config.RankerHTTP, Endpoint: "http://127.0.0.1:9/rank"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*httpranker.Client); !ok {
		t.Errorf("http = %T", c)
	}

	for _, cfg := range []config.RankerConfig{
		{Kind: config.RankerHTTP, Endpoint: "ftp://example.com"},
		{Kind: config.RankerGemini, APIKeyEnv: "VANITY_TEST_EMPTY_KEY"},
		{Kind: "oracle"},
	} {
		if c, err := newCollaborator(ctx, cfg); err == nil || c != nil {
			t.Errorf("%+v = %v, %v; want error and nil collaborator", cfg, c, err)
		}
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	if s, err := openStore(config.StoreConfig{Kind: config.StoreNone}, dir); s != nil || err != nil {
		t.Errorf("none = %v, %v", s, err)
	}
	s, err := openStore(config.StoreConfig{Kind: config.StoreMemory}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("memory = %T", s)
	}

	s, err = openStore(config.StoreConfig{Kind: config.StoreSQLite, Path: "db/results.db"}, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	db, ok := s.(*store.SQLite)
	if !ok {
		t.Fatalf("sqlite = %T", s)
	}
	if want := filepath.Join(dir, "db", "results.db"); db.Path() != want {
		t.Errorf("path = %s, want %s", db.Path(), want)
	}
	if _, err := os.Stat(db.Path()); err != nil {
		t.Errorf("database not created: %v", err)
	}

	if _, err := openStore(config.StoreConfig{Kind: "redis"}, dir); err == nil {
		t.Error("unknown store kind accepted")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	applyFlags(cfg, "/tmp/words.txt", 2, 0, config.RankerMock, config.StoreNone)
	if cfg.Dict.CorpusPath != "/tmp/words.txt" || cfg.CLI.DefaultLimit != 2 || cfg.Dict.MaxWords != 0 {
		t.Errorf("dict/cli = %+v %+v", cfg.Dict, cfg.CLI)
	}
	if cfg.Ranker.Kind != config.RankerMock || cfg.Store.Kind != config.StoreNone {
		t.Errorf("ranker/store = %q %q", cfg.Ranker.Kind, cfg.Store.Kind)
	}

	cfg = config.DefaultConfig()
	applyFlags(cfg, "", 0, -1, "psychic", "")
	if cfg.Ranker.Kind != config.RankerNone {
		t.Errorf("invalid ranker kept: %q", cfg.Ranker.Kind)
	}
	if cfg.Dict.CorpusPath != config.DefaultConfig().Dict.CorpusPath {
		t.Errorf("corpus path changed: %q", cfg.Dict.CorpusPath)
	}
}
