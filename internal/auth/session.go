package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"bus-ticket/internal/status"
	"bus-ticket/internal/store"
	"bus-ticket/models"
)

// Load restores a persisted session from the credential store, the app-start
// counterpart of sign-in. Without stored credentials it leaves the gateway
// signed out and returns nil.
func (g *Gateway) Load(ctx context.Context) error {
	blob, err := g.store.Get(store.KeyUser)
	if err != nil {
		return fmt.Errorf("load session: store.Get: %w", err)
	}
	if blob == "" {
		return nil
	}

	var stored models.StoredUser
	if err := json.Unmarshal([]byte(blob), &stored); err != nil {
		return fmt.Errorf("load session: json.Unmarshal: %w", err)
	}
	if stored.AccessToken == "" {
		return nil
	}

	refreshToken, err := g.store.Get(store.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load session: store.Get: %w", err)
	}

	user := stored.UserInfo
	user.RefreshToken = refreshToken

	g.mu.Lock()
	g.accessToken = stored.AccessToken
	g.user = &user
	g.mu.Unlock()

	slog.Info("session restored", "user", user.ID)
	return nil
}

// SignIn posts the credentials to the login endpoint and, on success,
// persists the session. On rejection the session state is left untouched.
func (g *Gateway) SignIn(ctx context.Context, phone, password string) error {
	payload, err := json.Marshal(map[string]string{
		"phone":    phone,
		"password": password,
		"role":     "user",
	})
	if err != nil {
		return fmt.Errorf("signin: json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/users/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("signin: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		return fmt.Errorf("signin: http.Do: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			User         models.User `json:"user"`
			AccessToken  string      `json:"accessToken"`
			RefreshToken string      `json:"refreshToken"`
		} `json:"data"`
	}
	if err := decodeJSON(resp.Body, &reply); err != nil {
		return fmt.Errorf("signin: json.Decode: %w", err)
	}
	if reply.Message != "Login successfully" {
		slog.Warn("login rejected", "message", reply.Message)
		return status.ErrLoginFailed
	}

	if err := g.persistSession(reply.Data.User, reply.Data.AccessToken, reply.Data.RefreshToken); err != nil {
		return fmt.Errorf("signin: persist session: %w", err)
	}

	slog.Info("signed in", "user", reply.Data.User.ID)
	return nil
}

// Logout best-effort notifies the server, then unconditionally clears the
// persisted credentials and the in-memory session. It never fails: a dead
// backend must not keep a client signed in.
func (g *Gateway) Logout(ctx context.Context) {
	g.mu.Lock()
	accessToken := g.accessToken
	user := g.user
	g.mu.Unlock()

	if accessToken != "" && user != nil {
		payload := fmt.Sprintf(`{"id":%q}`, user.ID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/users/logout", bytes.NewReader([]byte(payload)))
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+accessToken)
			req.Header.Set("Content-Type", "application/json")

			if resp, err := g.hc.Do(req); err != nil {
				slog.Warn("logout notify failed", "error", err)
			} else {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}
	}

	if err := g.store.Delete(store.KeyUser); err != nil {
		slog.Warn("logout: delete stored user", "error", err)
	}
	if err := g.store.Delete(store.KeyRefreshToken); err != nil {
		slog.Warn("logout: delete refresh token", "error", err)
	}

	g.mu.Lock()
	g.accessToken = ""
	g.user = nil
	g.mu.Unlock()
}

// Refresh forces a token refresh outside the 401 path. Failure is
// irrecoverable: the session is cleared and the caller must sign in again.
func (g *Gateway) Refresh(ctx context.Context) error {
	refreshToken, err := g.store.Get(store.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("refresh: store.Get: %w", err)
	}
	if refreshToken == "" {
		g.Logout(ctx)
		return status.ErrRefreshFailed
	}

	if token := g.refreshAccessToken(ctx, refreshToken); token == "" {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.Logout(ctx)
		return status.ErrRefreshFailed
	}
	return nil
}

// persistSession writes the rotated credentials to the store and swaps the
// in-memory session, keeping both views consistent.
func (g *Gateway) persistSession(user models.User, accessToken, refreshToken string) error {
	user.RefreshToken = refreshToken

	blob, err := json.Marshal(models.StoredUser{UserInfo: user, AccessToken: accessToken})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	if err := g.store.Set(store.KeyUser, string(blob)); err != nil {
		return fmt.Errorf("store.Set user: %w", err)
	}
	if err := g.store.Set(store.KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("store.Set refresh token: %w", err)
	}

	g.mu.Lock()
	g.accessToken = accessToken
	g.user = &user
	g.mu.Unlock()
	return nil
}

func decodeJSON(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	return dec.Decode(out)
}
