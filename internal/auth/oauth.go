package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"
)

const (
	authorizeEndpoint = "https://secure.soundcloud.com/authorize"
	redirectURI       = "http://127.0.0.1:8080/callback"
	callbackAddr      = "127.0.0.1:8080"

	codeVerifierLen = 64
	stateLen        = 56
)

// Login runs the PKCE authorization-code flow: opens the browser at the
// authorize URL, listens for the callback on a local port, exchanges the
// code, and persists the resulting token at path.
func Login(client *http.Client, creds Credentials, path string) (Token, error) {
	verifier, err := randomAlphanumeric(codeVerifierLen)
	if err != nil {
		return Token{}, err
	}
	state, err := randomAlphanumeric(stateLen)
	if err != nil {
		return Token{}, err
	}
	challenge := codeChallenge(verifier)

	authURL := fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&response_type=code&code_challenge=%s&code_challenge_method=S256&state=%s",
		authorizeEndpoint,
		url.QueryEscape(creds.ClientID),
		url.QueryEscape(redirectURI),
		challenge,
		state,
	)

	code, err := waitForCallback(authURL, state)
	if err != nil {
		return Token{}, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
		"code_verifier": {verifier},
	}
	tok, err := requestToken(client, form)
	if err != nil {
		return Token{}, err
	}

	if err := Save(tok, path); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// waitForCallback serves the redirect endpoint until the provider sends
// the authorization code, verifying the state parameter.
func waitForCallback(authURL, state string) (string, error) {
	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return "", fmt.Errorf("listen on %s (port busy?): %w", callbackAddr, err)
	}
	defer ln.Close()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code, returned := q.Get("code"), q.Get("state")
		switch {
		case code == "" || returned == "":
			http.Error(w, "Missing code or state", http.StatusBadRequest)
			done <- result{err: fmt.Errorf("missing code or state in callback")}
		case returned != state:
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			done <- result{err: fmt.Errorf("state mismatch in callback")}
		default:
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			done <- result{code: code}
		}
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())

	openBrowser(authURL)
	fmt.Printf("If your browser did not open, visit:\n%s\n", authURL)

	select {
	case res := <-done:
		return res.code, res.err
	case <-time.After(5 * time.Minute):
		return "", fmt.Errorf("timed out waiting for authorization callback")
	}
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomAlphanumeric(n int) (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

func openBrowser(u string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	_ = cmd.Start()
}
