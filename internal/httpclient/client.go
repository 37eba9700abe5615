package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"api-recorder/internal/auth"
	"api-recorder/internal/logging"
)

// DefaultTimeout bounds every outbound call made by the executor.
const DefaultTimeout = 60 * time.Second

// NewClient creates an *http.Client for a SUT's authentication type.
// Digest, NTLM, and OAuth2 client-credentials are wired into the transport;
// header-based types (basic, bearer, api_key) and "none" use the base
// transport, with headers applied per request by auth.ApplyHeaders.
func NewClient(authType string, credentials map[string]string) (*http.Client, error) {
	baseTransport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var transport http.RoundTripper = baseTransport

	switch strings.ToLower(authType) {
	case "digest":
		user, pass := auth.Username(credentials), auth.Password(credentials)
		if user == "" || pass == "" {
			return nil, fmt.Errorf("digest authentication requires a key pair or username/password in credentials")
		}
		logging.Logf(logging.Debug, "Configuring Digest transport")
		transport = &auth.DigestRoundTripper{Username: user, Password: pass, Next: baseTransport}

	case "ntlm":
		user, pass := auth.Username(credentials), auth.Password(credentials)
		if user == "" || pass == "" {
			return nil, fmt.Errorf("ntlm authentication requires username and password in credentials")
		}
		logging.Logf(logging.Debug, "Configuring NTLM transport")
		transport = ntlmssp.Negotiator{RoundTripper: baseTransport}

	case "oauth2":
		clientID := credentials["client_id"]
		clientSecret := credentials["client_secret"]
		tokenURL := credentials["token_url"]
		if clientID == "" || clientSecret == "" || tokenURL == "" {
			return nil, fmt.Errorf("oauth2 requires client_id, client_secret, and token_url in credentials")
		}
		logging.Logf(logging.Debug, "Configuring OAuth2 client credentials flow")
		oauthConfig := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		if scope := credentials["scope"]; scope != "" {
			oauthConfig.Scopes = strings.Split(scope, " ")
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
			Transport: baseTransport,
			Timeout:   DefaultTimeout,
		})
		client := oauthConfig.Client(ctx)
		client.Timeout = DefaultTimeout
		return client, nil

	case "", "none", "basic", "bearer", "api_key":
		// Header-based or unauthenticated; base transport is fine.

	default:
		return nil, fmt.Errorf("unsupported authentication type '%s' for client creation", authType)
	}

	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: transport,
	}, nil
}
