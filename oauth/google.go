package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// Google's OAuth2 endpoints.
const (
	GoogleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
)

// CallbackPath is the redirect path registered with the provider, relative to
// Config.BaseURL.
const CallbackPath = "auth/google/return"

// Handles written to the socialUser value carry this prefix.
const googleHandlePrefix = "google:"

var (
	// ErrStateMismatch is returned when the callback state does not match the
	// socialNounce recorded by Begin.
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrExchange is returned when the code exchange fails.
	ErrExchange = errors.New("oauth code exchange failed")
	// ErrIDToken is returned when the token response carries no usable id_token.
	ErrIDToken = errors.New("oauth id_token missing or malformed")
	// ErrConfig is returned by NewGoogle for incomplete configuration.
	ErrConfig = errors.New("oauth configuration invalid")
)

// Manager is the subset of goSession.Manager used by the login flow.
type Manager interface {
	CreateNonce() (string, error)
	ObserveOAuth(ctx context.Context, userID, reason string)
}

// Config configures a Google login flow.
type Config struct {
	ClientID     string
	ClientSecret string
	// BaseURL is the public origin of the application, e.g.
	// "https://example.com/".
	BaseURL string
	// AuthURL and TokenURL default to Google's endpoints.
	AuthURL  string
	TokenURL string
	// HTTPClient is used for the code exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Claims are the id_token claims the login flow reads.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Handle returns the socialUser value for these claims.
func (c *Claims) Handle() string {
	return googleHandlePrefix + c.Subject
}

// Google runs the authorization-code round trip for Google sign-in.
type Google struct {
	manager Manager
	oauth   oauth2.Config
	client  *http.Client
	parser  *jwt.Parser
}

// NewGoogle validates cfg and returns a login flow bound to manager.
func NewGoogle(manager Manager, cfg Config) (*Google, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w: manager is required", ErrConfig)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url must be absolute", ErrConfig)
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = GoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Google{
		manager: manager,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/" + CallbackPath,
			Scopes:      []string{"openid", "email", "profile"},
		},
		client: client,
		parser: jwt.NewParser(),
	}, nil
}

// RedirectURL returns the callback URL sent to the provider.
func (g *Google) RedirectURL() string { return g.oauth.RedirectURL }

// Begin records a fresh state nonce in store under socialNounce and returns
// the provider URL the browser is redirected to. The caller must persist
// store before the redirect completes.
func (g *Google) Begin(store *session.Store) (string, error) {
	state, err := g.manager.CreateNonce()
	if err != nil {
		return "", err
	}
	nonce, err := g.manager.CreateNonce()
	if err != nil {
		return "", err
	}

	store.Set(session.SocialNonceKey, state)
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce)), nil
}

// Complete finishes the callback. A state that does not match the stored
// socialNounce fails with a KindUnauthorized error and leaves store
// untouched. On success socialUser is set to "google:<sub>", the used state
// is removed, and the id_token claims are returned.
func (g *Google) Complete(ctx context.Context, store *session.Store, state, code string) (*Claims, error) {
	expected, ok := store.Get(session.SocialNonceKey)
	if !ok || expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		g.manager.ObserveOAuth(ctx, "", "state_mismatch")
		return nil, unauthorized(ErrStateMismatch)
	}

	tok, err := g.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.client), code)
	if err != nil {
		g.manager.ObserveOAuth(ctx, "", "exchange_failed")
		return nil, unauthorized(fmt.Errorf("%w: %v", ErrExchange, err))
	}

	claims, err := g.parseIDToken(tok)
	if err != nil {
		g.manager.ObserveOAuth(ctx, "", "invalid_id_token")
		return nil, unauthorized(err)
	}

	store.Set(session.SocialUserKey, claims.Handle())
	store.Delete(session.SocialNonceKey)
	g.manager.ObserveOAuth(ctx, claims.Handle(), "")
	return claims, nil
}

// parseIDToken reads the id_token claims without verifying the signature.
// The token arrives directly from the token endpoint over the back channel.
func (g *Google) parseIDToken(tok *oauth2.Token) (*Claims, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, ErrIDToken
	}

	claims := &Claims{}
	if _, _, err := g.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIDToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrIDToken)
	}
	return claims, nil
}

func unauthorized(err error) error {
	return &goSession.Error{Kind: goSession.KindUnauthorized, Op: "oauth_complete", Err: err}
}
