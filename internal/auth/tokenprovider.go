// Package auth provides the default TokenProvider implementation: a thin
// oauth2.TokenSource adapter using a refresh-token grant (spec.md §6's
// app_key/app_secret/refresh_token configuration keys). The core never
// imports this package directly — it depends only on the TokenProvider
// interface defined at the consumer (httpstore.TokenProvider), following
// the teacher's "accept interfaces, return structs" convention
// (internal/graph/client.go's TokenSource comment).
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// Credentials are the OAuth2 application credentials and long-lived
// refresh token forwarded from config (§6).
type Credentials struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	TokenURL     string // the remote's OAuth2 token endpoint
}

// Provider adapts an oauth2.TokenSource (backed by a refresh-token grant)
// to the TokenProvider shape the remote-store transport expects. Logs
// every acquisition so silent-refresh activity is visible, the way the
// teacher's tokenBridge does for its Graph client.
type Provider struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// New builds a Provider from static credentials. The returned Provider's
// underlying oauth2.TokenSource transparently refreshes the access token
// using the refresh token whenever it is near expiry.
func New(ctx context.Context, creds Credentials, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &oauth2.Config{
		ClientID:     creds.AppKey,
		ClientSecret: creds.AppSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: creds.TokenURL},
	}

	seed := &oauth2.Token{RefreshToken: creds.RefreshToken}
	src := cfg.TokenSource(ctx, seed)

	return &Provider{src: src, logger: logger}
}

// Token implements httpstore.TokenProvider, returning a valid bearer
// token and refreshing it transparently when expired.
func (p *Provider) Token(_ context.Context) (string, error) {
	t, err := p.src.Token()
	if err != nil {
		p.logger.Warn("auth: token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	p.logger.Debug("auth: token acquired", slog.Time("expiry", t.Expiry))

	return t.AccessToken, nil
}
