package httpranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vanityserve/vanityserve/pkg/ranking"
)

func testRequest() ranking.Request {
	return ranking.Request{
		OriginalDigits: "767",
		Candidates:     []ranking.CandidateForm{{ID: "0", DisplayForm: "POP", CoverageScore: 3}},
		MaxResults:     1,
	}
}

func TestRank(t *testing.T) {
	want := ranking.Response{Results: []ranking.Result{{ID: "0", Rank: 1, Score: 0.8, SpeechText: "pop"}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req ranking.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if diff := cmp.Diff(testRequest(), req); diff != "" {
			t.Errorf("request mismatch (-want +got):\n%s", diff)
		}
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	t.Setenv("VANITY_RANKER_KEY", "secret")
	c, err := New(Options{Endpoint: srv.URL, APIKeyEnv: "VANITY_RANKER_KEY"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Rank(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestRankErrors(t *testing.T) {
	testCases := []struct {
		description string
		handler     http.HandlerFunc
		want        ranking.Reason
	}{
		{"rate limited", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, ranking.ReasonRateLimited},
		{"server error", func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "down", http.StatusBadGateway) }, ranking.ReasonTransport},
		{"bad request", func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "no", http.StatusBadRequest) }, ranking.ReasonTransport},
		{"garbage body", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{not json")) }, ranking.ReasonMalformed},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c, err := New(Options{Endpoint: srv.URL})
			if err != nil {
				t.Fatal(err)
			}
			_, err = c.Rank(context.Background(), testRequest())
			if got := ranking.Classify(err); got != tc.want {
				t.Errorf("Classify(%v) = %q, want %q", err, got, tc.want)
			}
		})
	}
}

func TestRankHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Options{Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Rank(ctx, testRequest())
	if got := ranking.Classify(err); got != ranking.ReasonTimeout {
		t.Errorf("Classify(%v) = %q, want timeout", err, got)
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	if _, err := New(Options{Endpoint: "ftp://x"}); err == nil {
		t.Error("expected error for non-http endpoint")
	}
}
