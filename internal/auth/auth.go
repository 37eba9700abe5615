package auth

import (
	"fmt"
	"net/http"
)

// Username returns the credential used as the auth principal. Digest-style
// APIs tend to name the pair public_key/private_key; interactive logins use
// username/password. Both spellings are accepted.
func Username(credentials map[string]string) string {
	if v := credentials["username"]; v != "" {
		return v
	}
	return credentials["public_key"]
}

// Password returns the secret half of the credential pair.
func Password(credentials map[string]string) string {
	if v := credentials["password"]; v != "" {
		return v
	}
	return credentials["private_key"]
}

// ApplyHeaders sets request headers for authentication types that work by
// headers alone: "api_key", "bearer", and "basic". Digest, NTLM, and OAuth2
// are handled by the client transport; "none" and "" are no-ops.
func ApplyHeaders(req *http.Request, authType string, credentials map[string]string) error {
	switch authType {
	case "", "none", "digest", "oauth2":
		return nil
	case "ntlm":
		// The ntlmssp negotiator picks the credentials up from basic auth.
		user, pass := Username(credentials), Password(credentials)
		if user == "" || pass == "" {
			return fmt.Errorf("ntlm authentication selected, but username or password not found in credentials")
		}
		req.SetBasicAuth(user, pass)
	case "api_key":
		key := credentials["api_key"]
		if key == "" {
			return fmt.Errorf("api_key authentication selected, but 'api_key' not found in credentials")
		}
		req.Header.Set("Authorization", "Bearer "+key)
	case "bearer":
		token := credentials["token"]
		if token == "" {
			return fmt.Errorf("bearer authentication selected, but 'token' not found in credentials")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case "basic":
		user, pass := Username(credentials), Password(credentials)
		if user == "" || pass == "" {
			return fmt.Errorf("basic authentication selected, but username or password not found in credentials")
		}
		req.SetBasicAuth(user, pass)
	default:
		return fmt.Errorf("unsupported authentication type: %s", authType)
	}
	return nil
}
