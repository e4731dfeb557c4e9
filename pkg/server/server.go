package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/pkg/config"
	"github.com/vanityserve/vanityserve/pkg/lookup"
	"github.com/vanityserve/vanityserve/pkg/phone"
)

// DefaultWorkers bounds how many lookups run at once.
const DefaultWorkers = 8

// Lookuper is the part of *lookup.Service the server needs.
type Lookuper interface {
	Lookup(ctx context.Context, raw string) (lookup.Response, error)
}

// Info is reported by the info action.
type Info struct {
	Words  int
	Corpus string
	Ranker string
	Store  string
}

// Server handles the IPC for vanity lookups
type Server struct {
	svc        Lookuper
	info       Info
	configPath string

	cfgMu sync.RWMutex
	cfg   *config.Config

	dec     *msgpack.Decoder
	writeMu sync.Mutex
	enc     *msgpack.Encoder

	workers  int
	requests atomic.Int64
	log      *log.Logger
}

// NewServer creates a server using stdin/stdout for IPC. configPath is where
// config updates are saved; empty keeps them in memory.
func NewServer(svc Lookuper, cfg *config.Config, configPath string, info Info) *Server {
	return NewServerWithIO(svc, cfg, configPath, info, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing
// responses to w.
func NewServerWithIO(svc Lookuper, cfg *config.Config, configPath string, info Info, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		svc:        svc,
		info:       info,
		configPath: configPath,
		cfg:        cfg,
		dec:        msgpack.NewDecoder(r),
		enc:        msgpack.NewEncoder(w),
		workers:    DefaultWorkers,
		log:        logger.New("server"),
	}
}

// Start serves requests until the input ends or ctx is done. In-flight
// lookups are finished before it returns.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting server", "workers", s.workers)

	var g errgroup.Group
	g.SetLimit(s.workers)
	defer g.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("Input closed")
				return nil
			}
			s.log.Errorf("Reading request: %v", err)
			return err
		}
		s.requests.Add(1)

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.log.Debugf("Unmarshaling request: %v", err)
			s.sendError("", "invalid request", 400)
			continue
		}

		switch req.Action {
		case "", ActionLookup:
			g.Go(func() error {
				s.handleLookup(ctx, req)
				return nil
			})
		case ActionInfo:
			s.handleInfo(req)
		case ActionConfig:
			s.handleConfig(req)
		case ActionPing:
			s.send(PingResponse{ID: req.ID, Status: "ok"})
		default:
			s.sendError(req.ID, fmt.Sprintf("unknown action %q", req.Action), 404)
		}
	}
}

func (s *Server) limits() (int, time.Duration) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Server.MaxLimit, s.cfg.LookupTimeout()
}

func (s *Server) handleLookup(ctx context.Context, req Request) {
	if strings.TrimSpace(req.Number) == "" {
		s.sendError(req.ID, "missing 'n' parameter", 400)
		return
	}
	maxLimit, timeout := s.limits()
	limit := req.Limit
	if limit < 1 || limit > maxLimit {
		limit = maxLimit
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.svc.Lookup(ctx, req.Number)
	elapsed := time.Since(start)
	if err != nil {
		switch {
		case errors.Is(err, phone.ErrInvalidNumber):
			s.sendError(req.ID, err.Error(), 400)
		case errors.Is(err, context.DeadlineExceeded):
			s.sendError(req.ID, "lookup timed out", 504)
		default:
			s.log.Error("lookup failed", "id", req.ID, "err", err)
			s.sendError(req.ID, "internal error", 500)
		}
		return
	}

	r := resp.Result
	n := min(limit, len(r.Candidates))
	candidates := make([]LookupCandidate, n)
	for i, c := range r.Candidates[:n] {
		candidates[i] = LookupCandidate{
			Text:    c.Text,
			Display: c.Display,
			Speech:  c.Speech,
			Score:   c.Score,
			Rank:    uint16(i + 1),
		}
		for _, w := range c.Words {
			candidates[i].Words = append(candidates[i].Words, w.Word)
		}
	}

	s.log.Debug("lookup", "id", req.ID, "digits", r.Digits, "count", n, "cached", resp.Cached, "took", elapsed)
	s.send(LookupResponse{
		ID:             req.ID,
		ResultID:       r.ID,
		Digits:         r.Digits,
		Candidates:     candidates,
		Count:          n,
		Summary:        r.Summary(),
		Ranking:        r.Ranking,
		Fallback:       r.Fallback,
		FallbackReason: r.FallbackReason,
		Cached:         resp.Cached,
		TimeTaken:      elapsed.Milliseconds(),
	})
}

func (s *Server) handleInfo(req Request) {
	maxLimit, timeout := s.limits()
	s.send(InfoResponse{
		ID:              req.ID,
		Status:          "ok",
		Words:           s.info.Words,
		Corpus:          s.info.Corpus,
		Ranker:          s.info.Ranker,
		Store:           s.info.Store,
		MaxLimit:        maxLimit,
		LookupTimeoutMs: int(timeout / time.Millisecond),
		Requests:        s.requests.Load(),
	})
}

func (s *Server) handleConfig(req Request) {
	if req.MaxLimit == nil && req.LookupTimeoutMs == nil {
		s.sendError(req.ID, "nothing to update", 400)
		return
	}
	s.cfgMu.Lock()
	err := s.cfg.Update(s.configPath, req.MaxLimit, req.LookupTimeoutMs)
	maxLimit, timeoutMs := s.cfg.Server.MaxLimit, s.cfg.Server.LookupTimeoutMs
	s.cfgMu.Unlock()
	if err != nil {
		s.log.Errorf("Saving config: %v", err)
		s.sendError(req.ID, "failed to save config", 500)
		return
	}
	s.log.Info("config updated", "max_limit", maxLimit, "timeout_ms", timeoutMs)
	s.send(ConfigResponse{ID: req.ID, Status: "ok", MaxLimit: maxLimit, LookupTimeoutMs: timeoutMs})
}

// send encodes one response. Writes are serialised so concurrent lookups
// never interleave bytes.
func (s *Server) send(response any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
