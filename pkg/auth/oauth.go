package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/calstats/pkg/logger"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// Cloud Console. It is read from the calstats config directory.
	ClientSecretsFile = "credentials.json"

	// LocalhostAuthPort is the port the local web server listens on to
	// capture the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// Scopes are the permissions calstats asks for. Reports only read events.
var Scopes = []string{calendar.CalendarReadonlyScope}

// GetConfig creates an oauth2.Config from the client secrets file in dir.
func GetConfig(dir string, scopes []string) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = redirectURL(config.RedirectURL)
	return config, nil
}

// redirectURL pins localhost and out-of-band redirects to LocalhostAuthPort,
// where getTokenFromWeb listens.
func redirectURL(raw string) string {
	if raw == "urn:ietf:wg:oauth:2.0:oob" || raw == "" {
		u := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		logger.Debug("overriding redirect URL", "from", raw, "to", u)
		return u
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		logger.Warn("could not parse redirect URL, using it as is", "url", raw, "error", err)
		return raw
	}
	host := parsed.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		logger.Warn("redirect URL is not a localhost callback", "url", raw)
		return raw
	}
	if port := parsed.Port(); port != "" && port != LocalhostAuthPort {
		logger.Warn("forcing localhost redirect port", "configured", port, "port", LocalhostAuthPort)
	}
	parsed.Host = net.JoinHostPort(host, LocalhostAuthPort)
	return parsed.String()
}

// GetClient returns an authorized *http.Client. A stored token is reused and
// refreshed as needed; without one, the browser authorization flow runs.
// Refreshed tokens are written back to store.
func GetClient(ctx context.Context, config *oauth2.Config, store TokenStore) (*http.Client, error) {
	tok, err := store.Load()
	if err != nil {
		logger.Info("no usable stored token, starting web authorization", "store", store.String(), "reason", err)
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := store.Save(tok); err != nil {
			logger.Warn("could not save token", "store", store.String(), "error", err)
		}
	}

	src := &persistingSource{base: config.TokenSource(ctx, tok), store: store, last: tok}
	return oauth2.NewClient(ctx, src), nil
}

// persistingSource saves the token whenever the wrapped source hands out a
// different one, e.g. after a refresh.
type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && tok.AccessToken == s.last.AccessToken && tok.RefreshToken == s.last.RefreshToken {
		return tok, nil
	}
	logger.Debug("token refreshed, saving", "store", s.store.String())
	if err := s.store.Save(tok); err != nil {
		logger.Warn("could not re-save refreshed token", "error", err)
	}
	s.last = tok
	return tok, nil
}

// getTokenFromWeb runs the authorization code flow, capturing the redirect
// with a local web server.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler:      callbackHandler(state, codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		logger.Debug("listening for OAuth2 redirect", "url", config.RedirectURL)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// AccessTypeOffline makes Google return a refresh token.
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Please open the following URL in your browser to authorize calstats:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		if msg := q.Get("error"); msg != "" {
			http.Error(w, "Authorization denied", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", msg))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization code not found in redirect URL"))
			return
		}
		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func trySend(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
