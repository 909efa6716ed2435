// Package auth provides OAuth2 client credentials for outgoing HTTP calls.
package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Conf holds the client credentials. An empty ClientID disables
// authentication.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether credentials are configured.
func (c Conf) Enabled() bool { return c.ClientID != "" }

func (c Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// Client wraps base so that every request carries a bearer token. Tokens are
// fetched through base and cached until they expire. base is returned
// unchanged when no credentials are configured.
func Client(c Conf, base *http.Client) *http.Client {
	if !c.Enabled() {
		return base
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	conf := c.toOauth2Config()
	cli := conf.Client(ctx)
	cli.Timeout = base.Timeout
	return cli
}
