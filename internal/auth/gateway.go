// Package auth owns the session with the booking backend: bearer-token
// requests, single-flight access token refresh, and sign-in/sign-out.
package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bus-ticket/internal/status"
	"bus-ticket/internal/store"
	"bus-ticket/models"
	"bus-ticket/monitoring"
	"bus-ticket/utils"
)

type Config struct {
	BaseURL string

	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration

	// RefreshTimeout bounds the token refresh call specifically; an
	// unbounded refresh would stall every request waiting on its outcome.
	RefreshTimeout time.Duration
}

// Gateway wraps an HTTP client with bearer authentication. On a 401 it
// refreshes the access token and replays the request exactly once;
// concurrent 401s converge on a single upstream refresh call.
//
// All session state lives on the gateway itself, never in package globals,
// so independent sessions (and tests) cannot share refresh-lock state.
type Gateway struct {
	baseURL        string
	refreshTimeout time.Duration

	store   store.Store
	breaker *utils.CircuitBreaker

	// hc is the http client.
	hc *http.Client

	// mu guards the session fields and the refresh-start/refresh-settle
	// transition below.
	mu          sync.Mutex
	accessToken string
	user        *models.User
	refreshing  bool
	waiters     []chan string
}

func New(cfg *Config, st store.Store) *Gateway {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 15 * time.Second
	}
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout == 0 {
		refreshTimeout = 10 * time.Second
	}

	return &Gateway{
		baseURL:        cfg.BaseURL,
		refreshTimeout: refreshTimeout,
		store:          st,
		breaker:        utils.NewCircuitBreaker("backend"),
		hc: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// AccessToken returns the current access token, or "" without a session.
func (g *Gateway) AccessToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accessToken
}

// User returns a copy of the signed-in user, or nil without a session.
func (g *Gateway) User() *models.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// Do issues an authenticated request against the backend. The forced
// Authorization and Content-Type headers override the caller's; everything
// else in hdr is passed through.
//
// A 401 triggers one refresh-and-replay cycle. Every other response,
// including application-level failures, is returned untouched; the caller
// owns closing the body.
func (g *Gateway) Do(ctx context.Context, method, path string, body []byte, hdr http.Header) (*http.Response, error) {
	g.mu.Lock()
	accessToken := g.accessToken
	g.mu.Unlock()

	// re-read the refresh token on every call: a previous refresh may have
	// rotated it
	refreshToken, err := g.store.Get(store.KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("gateway: store.Get: %w", err)
	}

	if accessToken == "" {
		g.Logout(ctx)
		return nil, status.ErrNoAccessToken
	}

	resp, err := g.roundTrip(ctx, method, path, body, hdr, accessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || refreshToken == "" {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	slog.Warn("access token expired, refreshing", "path", path)

	newToken := g.refreshAccessToken(ctx, refreshToken)
	if newToken == "" {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.Logout(ctx)
		return nil, status.ErrRefreshFailed
	}

	monitoring.TrackRetry(path)
	resp, err = g.roundTrip(ctx, method, path, body, hdr, newToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &status.RetryError{Status: code}
	}
	return resp, nil
}

func (g *Gateway) roundTrip(ctx context.Context, method, path string, body []byte, hdr http.Header, token string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("gateway: http.NewRequestWithContext: %w", err)
	}

	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if id, err := utils.GenerateCode(8); err == nil {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	result, err := g.breaker.Execute(ctx, func() (any, error) {
		return g.hc.Do(req)
	})
	if err != nil {
		monitoring.TrackRequest(path, "error")
		return nil, fmt.Errorf("gateway: http.Do: %w", err)
	}

	resp := result.(*http.Response)
	monitoring.TrackRequest(path, strconv.Itoa(resp.StatusCode))
	monitoring.ObserveRequestDuration(path, time.Since(start))
	return resp, nil
}

// refreshAccessToken performs a single-flight token refresh. If a refresh is
// already in flight the caller parks on a channel and receives whatever that
// refresh produces; only one upstream call runs per session at any time.
// Returns the new access token, or "" when the refresh failed.
func (g *Gateway) refreshAccessToken(ctx context.Context, refreshToken string) string {
	g.mu.Lock()
	if g.refreshing {
		wait := make(chan string, 1)
		g.waiters = append(g.waiters, wait)
		g.mu.Unlock()

		select {
		case token := <-wait:
			return token
		case <-ctx.Done():
			return ""
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	token := g.doRefresh(ctx, refreshToken)

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	// every waiter shares this refresh's fate
	for _, wait := range waiters {
		wait <- token
	}
	return token
}

// doRefresh calls the refresh endpoint and, on success, persists the rotated
// credentials and updates the in-memory session. Any failure - network,
// malformed payload, or a non-matching message - fails closed and returns "".
func (g *Gateway) doRefresh(ctx context.Context, refreshToken string) string {
	ctx, cancel := context.WithTimeout(ctx, g.refreshTimeout)
	defer cancel()

	payload := fmt.Sprintf(`{"refreshToken":%q}`, refreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/users/refresh-token", bytes.NewReader([]byte(payload)))
	if err != nil {
		monitoring.TrackRefresh("error")
		slog.Error("refresh: http.NewRequestWithContext", "error", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		monitoring.TrackRefresh("error")
		slog.Error("refresh: http.Do", "error", err)
		return ""
	}
	defer resp.Body.Close()

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	if err := decodeJSON(resp.Body, &reply); err != nil {
		monitoring.TrackRefresh("error")
		slog.Error("refresh: json.Decode", "error", err)
		return ""
	}
	if reply.Message != "Token refreshed" {
		monitoring.TrackRefresh("rejected")
		slog.Error("refresh rejected", "message", reply.Message)
		return ""
	}

	g.mu.Lock()
	user := models.User{}
	if g.user != nil {
		user = *g.user
	}
	g.mu.Unlock()

	if err := g.persistSession(user, reply.Data.AccessToken, reply.Data.RefreshToken); err != nil {
		monitoring.TrackRefresh("error")
		slog.Error("refresh: persist session", "error", err)
		return ""
	}

	monitoring.TrackRefresh("refreshed")
	return reply.Data.AccessToken
}
