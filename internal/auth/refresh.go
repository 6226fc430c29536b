package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const tokenEndpoint = "https://secure.soundcloud.com/oauth/token"

// refreshBuffer is how far ahead of expiry the background task renews.
const refreshBuffer = 300 * time.Second

// Credentials identifies the registered OAuth application.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Refresh exchanges the refresh token for a fresh access token.
func Refresh(client *http.Client, creds Credentials, old Token) (Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"refresh_token": {old.RefreshToken},
	}

	return requestToken(client, form)
}

// TryRefresh refreshes the store's token in place if it has expired.
// Callers invoke this before every API hit; it is a no-op while the
// token is still fresh.
func TryRefresh(client *http.Client, creds Credentials, store *Store) error {
	store.mu.Lock()
	expired := store.tok.Expired()
	old := store.tok
	store.mu.Unlock()

	if !expired {
		return nil
	}

	fresh, err := Refresh(client, creds, old)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return store.Replace(fresh)
}

// StartAutoRefresh runs a background task that renews the token shortly
// before expiry. When a refresh fails, a signal is sent on the returned
// channel so the UI can prompt for re-authentication; the task keeps
// retrying every minute.
func StartAutoRefresh(client *http.Client, creds Credentials, store *Store) <-chan struct{} {
	reauth := make(chan struct{}, 1)

	go func() {
		for {
			store.mu.Lock()
			deadline := time.Unix(store.tok.ObtainedAt, 0).Add(refreshTime)
			old := store.tok
			store.mu.Unlock()

			if time.Until(deadline) <= refreshBuffer {
				fresh, err := Refresh(client, creds, old)
				if err != nil {
					log.Warn().Err(err).Msg("token auto-refresh failed")
					select {
					case reauth <- struct{}{}:
					default:
					}
					time.Sleep(time.Minute)
					continue
				}
				if err := store.Replace(fresh); err != nil {
					log.Warn().Err(err).Msg("persist refreshed token failed")
				}
			}

			time.Sleep(time.Minute)
		}
	}()

	return reauth
}

func requestToken(client *http.Client, form url.Values) (Token, error) {
	req, err := http.NewRequest(http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Token{}, fmt.Errorf("token endpoint HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Token{}, fmt.Errorf("parse token response: %w", err)
	}
	tok.ObtainedAt = time.Now().Unix()
	return tok, nil
}
