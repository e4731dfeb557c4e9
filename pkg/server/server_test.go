package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/goleak"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/pkg/config"
	"github.com/vanityserve/vanityserve/pkg/dictionary"
	"github.com/vanityserve/vanityserve/pkg/lookup"
	"github.com/vanityserve/vanityserve/pkg/store"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newService(t *testing.T) *lookup.Service {
	t.Helper()
	idx, err := dictionary.BuildIndex([]string{"call", "all", "flowers", "flower"})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := vanity.NewEngine(idx, vanity.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return lookup.New(eng, lookup.WithStore(store.NewMemory()), lookup.WithLogger(logger.Discard()))
}

func encode(t *testing.T, msgs ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

// run serves in and returns the raw responses keyed by id.
func run(t *testing.T, svc Lookuper, cfg *config.Config, in io.Reader) map[string]msgpack.RawMessage {
	t.Helper()
	var out bytes.Buffer
	s := NewServerWithIO(svc, cfg, "", Info{Words: 4, Ranker: "none", Store: "memory"}, in, &out)
	s.log = logger.Discard()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := make(map[string]msgpack.RawMessage)
	dec := msgpack.NewDecoder(&out)
	for {
		var raw msgpack.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("decoding response: %v", err)
		}
		var head struct {
			ID string `msgpack:"id"`
		}
		if err := msgpack.Unmarshal(raw, &head); err != nil {
			t.Fatal(err)
		}
		got[head.ID] = raw
	}
	return got
}

func decodeAs[T any](t *testing.T, raw msgpack.RawMessage) T {
	t.Helper()
	var v T
	if raw == nil {
		t.Fatal("missing response")
	}
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestServerRoundTrip(t *testing.T) {
	in := encode(t,
		Request{ID: "one", Number: "(212) 555-2255", Limit: 1},
		Request{ID: "all", Action: ActionLookup, Number: "18003569377"},
		Request{ID: "bad", Number: "555-CALL"},
		Request{ID: "empty"},
		Request{ID: "info", Action: ActionInfo},
		Request{ID: "ping", Action: ActionPing},
		Request{ID: "what", Action: "dance"},
		"not a request",
	)
	got := run(t, newService(t), nil, in)

	one := decodeAs[LookupResponse](t, got["one"])
	want := []LookupCandidate{{
		Text:    "212555CALL",
		Display: "212-555-CALL",
		Speech:  "two one two, five five five, CALL, spelled C A L L",
		Words:   []string{"call"},
		Score:   one.Candidates[0].Score,
		Rank:    1,
	}}
	if diff := cmp.Diff(want, one.Candidates); diff != "" {
		t.Errorf("lookup candidates (-want +got):\n%s", diff)
	}
	if one.Digits != "2125552255" || one.Count != 1 || one.Ranking != vanity.RankingProgrammatic || one.ResultID == "" {
		t.Errorf("lookup response = %+v", one)
	}

	all := decodeAs[LookupResponse](t, got["all"])
	if all.Count == 0 || all.Candidates[0].Display != "1-800-FLOWERS" {
		t.Errorf("flowers lookup = %+v", all)
	}
	for i, c := range all.Candidates {
		if int(c.Rank) != i+1 {
			t.Errorf("candidate %d has rank %d", i, c.Rank)
		}
	}

	for id, code := range map[string]int{"bad": 400, "empty": 400, "what": 404, "": 400} {
		e := decodeAs[ErrorResponse](t, got[id])
		if e.Code != code || e.Error == "" {
			t.Errorf("%q error = %+v, want code %d", id, e, code)
		}
	}

	info := decodeAs[InfoResponse](t, got["info"])
	if info.Words != 4 || info.Store != "memory" || info.MaxLimit != config.DefaultConfig().Server.MaxLimit {
		t.Errorf("info = %+v", info)
	}
	if ping := decodeAs[PingResponse](t, got["ping"]); ping.Status != "ok" {
		t.Errorf("ping = %+v", ping)
	}
}

func TestServerConfigUpdate(t *testing.T) {
	limit := 1
	in := encode(t,
		Request{ID: "cfg", Action: ActionConfig, MaxLimit: &limit},
		Request{ID: "look", Number: "2125552255", Limit: 5},
		Request{ID: "noop", Action: ActionConfig},
	)
	cfg := config.DefaultConfig()
	got := run(t, newService(t), cfg, in)

	ack := decodeAs[ConfigResponse](t, got["cfg"])
	if ack.Status != "ok" || ack.MaxLimit != 1 {
		t.Errorf("config ack = %+v", ack)
	}
	if cfg.Server.MaxLimit != 1 {
		t.Errorf("config not updated: %+v", cfg.Server)
	}
	// The request limit cannot exceed max_limit.
	if look := decodeAs[LookupResponse](t, got["look"]); look.Count != 1 {
		t.Errorf("lookup count = %d, want 1", look.Count)
	}
	if e := decodeAs[ErrorResponse](t, got["noop"]); e.Code != 400 {
		t.Errorf("empty config update = %+v", e)
	}
}

type stuckService struct{}

func (stuckService) Lookup(ctx context.Context, _ string) (lookup.Response, error) {
	<-ctx.Done()
	return lookup.Response{}, ctx.Err()
}

func TestServerLookupTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.LookupTimeoutMs = 10
	got := run(t, stuckService{}, cfg, encode(t, Request{ID: "slow", Number: "2125552255"}))
	if e := decodeAs[ErrorResponse](t, got["slow"]); e.Code != 504 {
		t.Errorf("timeout response = %+v", e)
	}
}

func TestServerTruncatedInput(t *testing.T) {
	in := encode(t, Request{ID: "x", Number: "2125552255"})
	truncated := bytes.NewReader(in.Bytes()[:in.Len()-3])
	s := NewServerWithIO(newService(t), nil, "", Info{}, truncated, io.Discard)
	s.log = logger.Discard()
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start accepted a truncated message")
	}
}
