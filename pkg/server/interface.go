/*
Package server implements msgpack IPC for vanity number lookups.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per request to stdout. Logs go to stderr so they never mix with the
stream.

# IPC

Every message carries an ID that is echoed back. Lookups run concurrently, so
responses can arrive in a different order than the requests were sent; match
them by ID.

A lookup request needs only the raw number and an optional limit:

	{"id": "req_001", "n": "(212) 555-2255", "l": 3}

The response lists the ranked renderings for display and speech:

	{"id": "req_001", "rid": "01J...", "n": "2125552255",
	 "c": [{"d": "212-555-CALL", "sp": "two one two, five five five, CALL, spelled C A L L", "r": 1}],
	 "cnt": 1, "m": "programmatic", "k": false, "t": 3}

Other actions are selected with the "a" field:

	{"id": "info_001", "a": "info"}
	{"id": "cfg_001", "a": "config", "max_limit": 5, "timeout_ms": 1500}
	{"id": "ping_001", "a": "ping"}

Failures come back as {"id": ..., "e": message, "c": code}, where code is 400
for bad input, 404 for an unknown action, 504 when a lookup runs past
server.lookup_timeout_ms and 500 otherwise.
*/
package server

// Actions.
const (
	ActionLookup = "lookup"
	ActionInfo   = "info"
	ActionConfig = "config"
	ActionPing   = "ping"
)

// Request is the envelope for every action. An empty Action is a lookup.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"a,omitempty"`
	Number string `msgpack:"n,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`

	// config only
	MaxLimit        *int `msgpack:"max_limit,omitempty"`
	LookupTimeoutMs *int `msgpack:"timeout_ms,omitempty"`
}

// LookupCandidate is one ranked rendering.
type LookupCandidate struct {
	Text    string   `msgpack:"x"`
	Display string   `msgpack:"d"`
	Speech  string   `msgpack:"sp"`
	Words   []string `msgpack:"w,omitempty"`
	Score   float64  `msgpack:"s"`
	Rank    uint16   `msgpack:"r"`
}

// LookupResponse answers a lookup.
type LookupResponse struct {
	ID             string            `msgpack:"id"`
	ResultID       string            `msgpack:"rid"`
	Digits         string            `msgpack:"n"`
	Candidates     []LookupCandidate `msgpack:"c"`
	Count          int               `msgpack:"cnt"`
	Summary        string            `msgpack:"sum"`
	Ranking        string            `msgpack:"m"`
	Fallback       bool              `msgpack:"f,omitempty"`
	FallbackReason string            `msgpack:"fr,omitempty"`
	Cached         bool              `msgpack:"k"`
	TimeTaken      int64             `msgpack:"t"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	ID              string `msgpack:"id"`
	Status          string `msgpack:"status"`
	Words           int    `msgpack:"words"`
	Corpus          string `msgpack:"corpus,omitempty"`
	Ranker          string `msgpack:"ranker"`
	Store           string `msgpack:"store"`
	MaxLimit        int    `msgpack:"max_limit"`
	LookupTimeoutMs int    `msgpack:"timeout_ms"`
	Requests        int64  `msgpack:"requests"`
}

// ConfigResponse acknowledges a config update.
type ConfigResponse struct {
	ID              string `msgpack:"id"`
	Status          string `msgpack:"status"`
	MaxLimit        int    `msgpack:"max_limit"`
	LookupTimeoutMs int    `msgpack:"timeout_ms"`
}

// PingResponse answers a ping.
type PingResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for any request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
