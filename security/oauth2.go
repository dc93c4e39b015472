package security

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2 authorizes requests with tokens from an oauth2.TokenSource.
type OAuth2 struct {
	source oauth2.TokenSource
}

// NewOAuth2 wraps src so that tokens are reused until they expire.
func NewOAuth2(src oauth2.TokenSource) *OAuth2 {
	return &OAuth2{source: oauth2.ReuseTokenSource(nil, src)}
}

// ClientCredentialsConfig configures the two-legged client credentials flow.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// HTTPClient is used to reach the token endpoint. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Validate checks the required fields.
func (c ClientCredentialsConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required for oauth2")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required for oauth2")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("token_url is required for oauth2")
	}
	return nil
}

// NewClientCredentials returns a provider fetching tokens with the client
// credentials flow.
func NewClientCredentials(ctx context.Context, cfg ClientCredentialsConfig) (*OAuth2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &OAuth2{source: cc.TokenSource(ctx)}, nil
}

// Sign sets the Authorization header from the current token.
func (o *OAuth2) Sign(req *http.Request) error {
	token, err := o.source.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain oauth2 token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}
