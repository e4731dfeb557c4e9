// Package lookup is the entry point callers use: it validates raw input,
// consults the result store, and runs at most one engine computation per
// number at a time.
package lookup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/pkg/phone"
	"github.com/vanityserve/vanityserve/pkg/store"
	"github.com/vanityserve/vanityserve/pkg/vanity"
)

// Engine is the part of *vanity.Engine the service needs.
type Engine interface {
	Lookup(ctx context.Context, number phone.Number) (*vanity.Result, error)
}

// Service answers lookups. It is safe for concurrent use.
type Service struct {
	engine Engine
	store  store.Store
	phone  phone.Options
	group  singleflight.Group
	log    *log.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithStore caches results in s. Without it every lookup computes.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithPhoneOptions replaces phone.DefaultOptions.
func WithPhoneOptions(o phone.Options) Option {
	return func(svc *Service) { svc.phone = o }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(svc *Service) { svc.log = l }
}

// New creates a service around engine.
func New(engine Engine, opts ...Option) *Service {
	svc := &Service{engine: engine, phone: phone.DefaultOptions()}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.log == nil {
		svc.log = logger.New("lookup")
	}
	return svc
}

// Response is a lookup result and whether it came from the store.
type Response struct {
	Result *vanity.Result
	Cached bool
	// Shared is set when this call waited on a computation started by another.
	Shared bool
}

// Lookup validates raw and returns the stored result for the number, or
// computes and stores one. Concurrent calls for the same number share one
// computation, and so one ranking collaborator call. Store failures are
// logged and do not fail the lookup.
func (s *Service) Lookup(ctx context.Context, raw string) (Response, error) {
	number, err := phone.Parse(raw, s.phone)
	if err != nil {
		return Response{}, err
	}
	key := number.Digits

	if r, ok := s.cached(ctx, key); ok {
		return Response{Result: r, Cached: true}, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Claimed: check again, a computation may have finished in between.
		if r, ok := s.cached(context.WithoutCancel(ctx), key); ok {
			return cachedResult{r}, nil
		}
		// One caller's cancellation must not fail the others waiting here.
		res, err := s.engine.Lookup(context.WithoutCancel(ctx), number)
		if err != nil {
			return nil, err
		}
		return s.save(context.WithoutCancel(ctx), key, res), nil
	})

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return Response{}, fmt.Errorf("lookup %s: %w", key, out.Err)
		}
		switch v := out.Val.(type) {
		case cachedResult:
			return Response{Result: v.r, Cached: true, Shared: out.Shared}, nil
		case *vanity.Result:
			return Response{Result: v, Shared: out.Shared}, nil
		}
		return Response{}, fmt.Errorf("lookup %s: unexpected result %T", key, out.Val)
	}
}

type cachedResult struct{ r *vanity.Result }

func (s *Service) cached(ctx context.Context, key string) (*vanity.Result, bool) {
	if s.store == nil {
		return nil, false
	}
	r, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Error("store get failed", "key", key, "err", err)
		return nil, false
	}
	return r, ok
}

// save stores r and returns the result that is now on record, which is an
// earlier one when another writer got there first.
func (s *Service) save(ctx context.Context, key string, r *vanity.Result) *vanity.Result {
	if s.store == nil {
		return r
	}
	stored, err := s.store.PutIfAbsent(ctx, key, r)
	if err != nil {
		s.log.Error("store put failed", "key", key, "err", err)
		return r
	}
	if !stored {
		s.log.Debug("result already stored", "key", key)
		if prev, ok := s.cached(ctx, key); ok {
			return prev
		}
	}
	return r
}
