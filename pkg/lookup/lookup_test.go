package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/pkg/dictionary"
	"github.com/vanityserve/vanityserve/pkg/phone"
	"github.com/vanityserve/vanityserve/pkg/ranking/mock"
	"github.com/vanityserve/vanityserve/pkg/store"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, collab *mock.Counting) *vanity.Engine {
	t.Helper()
	idx, err := dictionary.BuildIndex([]string{"call", "all", "pop", "flowers"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := vanity.NewEngine(idx, vanity.DefaultOptions(), collab)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestLookupSingleFlight(t *testing.T) {
	collab := &mock.Counting{Next: mock.Slow{Delay: 50 * time.Millisecond}}
	svc := New(newEngine(t, collab), WithStore(store.NewMemory()), WithLogger(logger.Discard()))

	inputs := []string{"2125552255", "(212) 555-2255", "212.555.2255", "+1 212 555 2255"}
	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Lookup(context.Background(), inputs[i%3])
			if err != nil {
				t.Error(err)
				return
			}
			ids <- resp.Result.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Errorf("callers saw different results: %s and %s", first, id)
		}
	}
	if collab.Calls() != 1 {
		t.Errorf("collaborator called %d times, want 1", collab.Calls())
	}

	// Same national number with the country code is a different key.
	if _, err := svc.Lookup(context.Background(), inputs[3]); err != nil {
		t.Fatal(err)
	}
	if collab.Calls() != 2 {
		t.Errorf("collaborator called %d times, want 2", collab.Calls())
	}
}

func TestLookupIdempotent(t *testing.T) {
	collab := &mock.Counting{}
	svc := New(newEngine(t, collab), WithStore(store.NewMemory()), WithLogger(logger.Discard()))

	first, err := svc.Lookup(context.Background(), "2125552255")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first lookup reported as cached")
	}
	second, err := svc.Lookup(context.Background(), "212-555-2255")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Result != first.Result {
		t.Errorf("second lookup did not return the stored result: %+v", second)
	}
	if collab.Calls() != 1 {
		t.Errorf("collaborator called %d times, want 1", collab.Calls())
	}
}

func TestLookupWithoutStoreRecomputes(t *testing.T) {
	collab := &mock.Counting{}
	svc := New(newEngine(t, collab), WithLogger(logger.Discard()))
	for range 2 {
		if _, err := svc.Lookup(context.Background(), "2125552255"); err != nil {
			t.Fatal(err)
		}
	}
	if collab.Calls() != 2 {
		t.Errorf("collaborator called %d times, want 2", collab.Calls())
	}
}

func TestLookupValidation(t *testing.T) {
	collab := &mock.Counting{}
	svc := New(newEngine(t, collab), WithLogger(logger.Discard()))
	_, err := svc.Lookup(context.Background(), "555-CALL")
	if !errors.Is(err, phone.ErrInvalidNumber) {
		t.Errorf("error = %v, want ErrInvalidNumber", err)
	}
	if collab.Calls() != 0 {
		t.Error("engine ran for an invalid number")
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*vanity.Result, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (brokenStore) PutIfAbsent(context.Context, string, *vanity.Result) (bool, error) {
	return false, errors.New("disk on fire")
}

func (brokenStore) Close() error { return nil }

func TestLookupIgnoresStoreFailures(t *testing.T) {
	svc := New(newEngine(t, &mock.Counting{}), WithStore(brokenStore{}), WithLogger(logger.Discard()))
	resp, err := svc.Lookup(context.Background(), "2125552255")
	if err != nil {
		t.Fatalf("store failure surfaced: %v", err)
	}
	if resp.Result == nil || len(resp.Result.Candidates) == 0 {
		t.Errorf("empty result: %+v", resp)
	}
}

type gatedEngine struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedEngine) Lookup(ctx context.Context, n phone.Number) (*vanity.Result, error) {
	g.calls.Add(1)
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &vanity.Result{ID: "gated", Digits: n.Digits}, nil
}

func TestLookupCancelDoesNotPoisonWaiters(t *testing.T) {
	eng := &gatedEngine{release: make(chan struct{})}
	svc := New(eng, WithLogger(logger.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan error, 1)
	go func() {
		_, err := svc.Lookup(ctx, "2125552255")
		canceled <- err
	}()
	for eng.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	waiter := make(chan Response, 1)
	go func() {
		resp, err := svc.Lookup(context.Background(), "2125552255")
		if err != nil {
			t.Error(err)
		}
		waiter <- resp
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-canceled; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller got %v", err)
	}
	close(eng.release)
	resp := <-waiter
	if resp.Result == nil || resp.Result.ID != "gated" {
		t.Errorf("waiter got %+v", resp)
	}
}
