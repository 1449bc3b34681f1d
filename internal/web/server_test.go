// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/mail"
	"github.com/dailypuzzle/dailypuzzle/internal/observability"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	"github.com/dailypuzzle/dailypuzzle/internal/ratelimit"
	"github.com/dailypuzzle/dailypuzzle/internal/store/memory"
	"github.com/dailypuzzle/dailypuzzle/internal/web"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records sent mail and fails every send while err is set.
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

var (
	tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)
	codePattern  = regexp.MustCompile(`login page: ([A-Z0-9]+)`)
)

// credentials extracts the link token and code from the latest message.
func (o *outbox) credentials(t *testing.T) (token, code string) {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs, "no mail sent")
	text := o.msgs[len(o.msgs)-1].Text
	tm := tokenPattern.FindStringSubmatch(text)
	require.Len(t, tm, 2, "no link token in %q", text)
	cm := codePattern.FindStringSubmatch(text)
	require.Len(t, cm, 2, "no code in %q", text)
	return tm[1], cm[1]
}

const baseURL = "https://puzzle.example.com"

// Release days around the fixture clock.
var (
	yesterday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	today     = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tomorrow  = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	clock    *clock
	store    *memory.Store
	outbox   *outbox
	metrics  *observability.Metrics
	limiter  *ratelimit.Memory
	deps     web.Deps
	server   *web.Server
	handler  http.Handler
	puzzles  *puzzle.Service
	ids      map[time.Time]int64
	noHintID int64
}

type fixtureOption func(*web.Config, *web.Deps)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	c := &clock{now: today.Add(10 * time.Hour)}
	st := memory.New(memory.WithClock(c.Now))

	sessions, err := auth.NewSessionService(st.Sessions(), auth.SessionConfig{Now: c.Now})
	require.NoError(t, err)
	creds, err := auth.NewCredentialService(st.Users(), st.Credentials(), sessions, st, auth.CredentialConfig{Now: c.Now})
	require.NoError(t, err)
	accounts, err := auth.NewAccountService(st.Users())
	require.NoError(t, err)
	admins, err := auth.NewAdminMatcher([]string{"admin@example.com"})
	require.NoError(t, err)
	puzzles, err := puzzle.NewService(st.Puzzles(), st.Attempts(), puzzle.ServiceConfig{Now: c.Now})
	require.NoError(t, err)

	limiter := ratelimit.NewMemory(ratelimit.MemoryConfig{Now: c.Now})
	t.Cleanup(limiter.Close)

	f := &fixture{
		clock:   c,
		store:   st,
		outbox:  &outbox{},
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		limiter: limiter,
		puzzles: puzzles,
		ids:     map[time.Time]int64{},
	}

	ctx := context.Background()
	for _, p := range []*puzzle.Puzzle{
		{Date: yesterday, Type: puzzle.TypeText, Question: "Yesterday?", Answer: "past", Hint: "old"},
		{Date: today, Type: puzzle.TypeText, Name: "Warmup", Question: "What is the answer?", Answer: "testanswer|test answer", Hint: "it is a test"},
		{Date: tomorrow, Type: puzzle.TypeLadder, Question: "COLD, ____, WARM", Answer: "cord, card, ward"},
	} {
		require.NoError(t, st.Puzzles().Create(ctx, p))
		f.ids[p.Date] = p.ID
	}
	noHint := &puzzle.Puzzle{Date: yesterday.AddDate(0, 0, -1), Type: puzzle.TypeChoice, Question: "Largest?|Mars|Jupiter", Answer: "jupiter"}
	require.NoError(t, st.Puzzles().Create(ctx, noHint))
	f.noHintID = noHint.ID

	cfg := web.Config{BaseURL: baseURL, Metrics: f.metrics}
	deps := web.Deps{
		Credentials: creds,
		Sessions:    sessions,
		Accounts:    accounts,
		Admins:      admins,
		Puzzles:     puzzles,
		Limiter:     limiter,
		Mail:        f.outbox,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	f.deps = deps
	f.server, err = web.NewServer(cfg, deps)
	require.NoError(t, err)
	f.handler = f.server.Handler()
	return f
}

type request struct {
	method  string
	path    string
	body    any
	raw     string
	cookie  *http.Cookie
	from    string
	headers map[string]string
}

func (f *fixture) do(t *testing.T, req request) *http.Response {
	t.Helper()
	var body io.Reader
	switch {
	case req.raw != "":
		body = bytes.NewBufferString(req.raw)
	case req.body != nil:
		b, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.from != "" {
		r.RemoteAddr = req.from + ":40000"
	}
	if req.cookie != nil {
		r.AddCookie(req.cookie)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec.Result()
}

// login runs the magic-link flow for email and returns the session cookie.
func (f *fixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	resp := f.do(t, request{method: http.MethodPost, path: "/login", body: map[string]string{"email": email}, from: "198.51.100.1"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	token, _ := f.outbox.credentials(t)

	resp = f.do(t, request{method: http.MethodGet, path: "/auth?token=" + token})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return sessionCookie(t, resp)
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == web.SessionCookie {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", web.SessionCookie)
	return nil
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Error string `json:"error"`
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[errorBody](t, resp).Error
}

// failingLimiter reports a backend error on every call.
type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}
