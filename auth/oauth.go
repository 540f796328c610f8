package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrStateMismatch indicates the callback carried a state value that
// does not match the one issued for this flow.
var ErrStateMismatch = errors.New("oauth state mismatch")

// LoginFlow performs a one-shot OAuth2 authorization-code login with
// PKCE. The verifier and state are scoped to the flow instance, so
// concurrent logins cannot contaminate each other. The browser is
// pointed at AuthURL; Run serves the local redirect until a request
// actually carrying the authorization code arrives, then exchanges it
// for a token. Stray requests on the callback port (favicons, CORS
// preflights) are answered with 404 and do not consume the exchange.
type LoginFlow struct {
	conf     *oauth2.Config
	verifier string
	state    string
	addr     string
	logger   zerolog.Logger
}

// NewLoginFlow creates a login flow. callbackAddr is the local listen
// address the authorization server redirects back to, e.g.
// "localhost:8080".
func NewLoginFlow(clientID, authURL, tokenURL, callbackAddr string, logger zerolog.Logger) (*LoginFlow, error) {
	if clientID == "" {
		return nil, fmt.Errorf("oauth client ID is required")
	}
	if authURL == "" || tokenURL == "" {
		return nil, fmt.Errorf("oauth endpoint URLs are required")
	}
	if callbackAddr == "" {
		callbackAddr = "localhost:8080"
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	return &LoginFlow{
		conf: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: "http://" + callbackAddr,
			Scopes:      []string{"openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		verifier: oauth2.GenerateVerifier(),
		state:    state,
		addr:     callbackAddr,
		logger:   logger,
	}, nil
}

// AuthURL returns the authorization URL the user must open in a
// browser to approve the login.
func (f *LoginFlow) AuthURL() string {
	return f.conf.AuthCodeURL(f.state, oauth2.S256ChallengeOption(f.verifier))
}

// Run listens on the callback address until the redirect carrying the
// authorization code arrives, then exchanges the code for a token.
func (f *LoginFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", f.addr, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			state := r.URL.Query().Get("state")
			if r.Method != http.MethodGet || code == "" || state == "" {
				// Not the redirect; keep waiting for the real one.
				f.logger.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Ignoring request without authorization code")
				http.NotFound(w, r)
				return
			}

			if state != f.state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				select {
				case errCh <- ErrStateMismatch:
				default:
				}
				return
			}

			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>Login complete. You can close this window.</body></html>")
			select {
			case codeCh <- code:
			default:
			}
		}),
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer f.shutdown(server)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case code := <-codeCh:
		tok, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return tok, nil
	}
}

func (f *LoginFlow) shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to shut down callback server")
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
