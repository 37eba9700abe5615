package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"regexp"
	"strings"

	"api-recorder/internal/logging"
)

// ErrDigestUnsupported indicates the server offered no algorithm supported
// by the client.
var ErrDigestUnsupported = fmt.Errorf("server offered no Digest algorithms supported by the client")

// ErrDigestQopUnsupported indicates the server requires an unsupported QOP.
var ErrDigestQopUnsupported = fmt.Errorf("server requires an unsupported QOP value")

// digestChallenge holds parsed values from the WWW-Authenticate header.
type digestChallenge struct {
	Realm      string
	Nonce      string
	Opaque     string
	Algorithm  string
	QopOptions []string
}

// DigestRoundTripper implements http.RoundTripper for Digest authentication:
// it issues the request, and on a 401 Digest challenge retries once with the
// computed Authorization header. MD5 and SHA-256 variants are supported.
type DigestRoundTripper struct {
	Username string
	Password string
	Next     http.RoundTripper
}

// RoundTrip handles the Digest challenge-response flow.
func (rt *DigestRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.Next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	authHeader := resp.Header.Get("WWW-Authenticate")
	if !strings.HasPrefix(strings.ToLower(authHeader), "digest ") {
		logging.Logf(logging.Debug, "Digest RT: 401 without Digest challenge, passing through")
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	logging.Logf(logging.Debug, "Digest RT: received challenge: %s", authHeader)

	challenge, err := parseDigestChallenge(authHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Digest challenge header '%s': %w", authHeader, err)
	}
	algo, qop, err := selectAlgorithmAndQop(challenge)
	if err != nil {
		return nil, err
	}

	nc := uint32(1)
	cnonce, err := generateCNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cnonce: %w", err)
	}

	response, err := calculateDigestResponse(rt.Username, rt.Password, req.Method, req.URL.RequestURI(),
		req.GetBody, challenge, algo, qop, nc, cnonce)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate Digest response: %w", err)
	}

	authedReq := req.Clone(req.Context())
	authedReq.Header.Set("Authorization", formatDigestAuthorization(rt.Username, challenge, req.URL.RequestURI(), algo, qop, nc, cnonce, response))

	if req.GetBody != nil {
		body, gbErr := req.GetBody()
		if gbErr != nil {
			return nil, fmt.Errorf("digest RT: failed GetBody for authenticated request: %w", gbErr)
		}
		authedReq.Body = body
		authedReq.ContentLength = req.ContentLength
	} else {
		authedReq.Body = nil
		authedReq.ContentLength = 0
	}

	return rt.Next.RoundTrip(authedReq)
}

func selectAlgorithmAndQop(challenge *digestChallenge) (string, string, error) {
	var algo string
	switch strings.ToUpper(challenge.Algorithm) {
	case "SHA-256-SESS":
		algo = "SHA-256-sess"
	case "SHA-256":
		algo = "SHA-256"
	case "MD5-SESS":
		algo = "MD5-sess"
	case "MD5", "":
		algo = "MD5"
	default:
		return "", "", fmt.Errorf("%w: server offered '%s'", ErrDigestUnsupported, challenge.Algorithm)
	}

	var qop string
	hasAuth := false
	for _, option := range challenge.QopOptions {
		if option == "auth-int" {
			qop = "auth-int"
			break
		}
		if option == "auth" {
			hasAuth = true
		}
	}
	if qop == "" && hasAuth {
		qop = "auth"
	}
	if len(challenge.QopOptions) > 0 && qop == "" {
		return "", "", fmt.Errorf("%w: server offered QOP(s) '%s'", ErrDigestQopUnsupported, strings.Join(challenge.QopOptions, ","))
	}
	return algo, qop, nil
}

var digestParamRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)\s*=\s*(?:"([^"]*)"|([^",\s]+))`)

func parseDigestChallenge(header string) (*digestChallenge, error) {
	const prefix = "digest "
	value := strings.TrimSpace(header[len(prefix):])
	if value == "" {
		return nil, fmt.Errorf("empty Digest challenge parameters")
	}

	params := make(map[string]string)
	matches := digestParamRegex.FindAllStringSubmatch(value, -1)
	if matches == nil {
		return nil, fmt.Errorf("could not parse any parameters from Digest challenge")
	}
	for _, match := range matches {
		v := match[2]
		if v == "" {
			v = match[3]
		}
		params[strings.ToLower(match[1])] = v
	}

	var qopOptions []string
	for _, qop := range strings.Split(params["qop"], ",") {
		qop = strings.ToLower(strings.TrimSpace(qop))
		if qop == "auth" || qop == "auth-int" {
			qopOptions = append(qopOptions, qop)
		}
	}

	challenge := &digestChallenge{
		Realm:      params["realm"],
		Nonce:      params["nonce"],
		Opaque:     params["opaque"],
		Algorithm:  params["algorithm"],
		QopOptions: qopOptions,
	}
	if challenge.Realm == "" || challenge.Nonce == "" {
		return nil, fmt.Errorf("missing required Digest parameters (realm or nonce)")
	}
	return challenge, nil
}

func generateCNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func h(hasher hash.Hash, data string) string {
	hasher.Reset()
	_, _ = hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

func calculateDigestResponse(
	username, password, method, uri string,
	getBody func() (io.ReadCloser, error),
	challenge *digestChallenge,
	algo, qop string, nc uint32, cnonce string,
) (string, error) {
	var hasher hash.Hash
	algoUpper := strings.ToUpper(algo)
	switch algoUpper {
	case "MD5", "MD5-SESS":
		hasher = md5.New()
	case "SHA-256", "SHA-256-SESS":
		hasher = sha256.New()
	default:
		return "", fmt.Errorf("internal error: unsupported Digest algorithm selected: %s", algo)
	}

	ha1 := h(hasher, fmt.Sprintf("%s:%s:%s", username, challenge.Realm, password))
	if strings.HasSuffix(algoUpper, "-SESS") {
		ha1 = h(hasher, fmt.Sprintf("%s:%s:%s", ha1, challenge.Nonce, cnonce))
	}

	var ha2 string
	if qop == "auth-int" {
		var bodyBytes []byte
		if getBody != nil {
			reader, err := getBody()
			if err != nil {
				return "", fmt.Errorf("failed get body for auth-int: %w", err)
			}
			bodyBytes, err = io.ReadAll(reader)
			reader.Close()
			if err != nil {
				return "", fmt.Errorf("failed read body for auth-int: %w", err)
			}
		}
		hasher.Reset()
		_, _ = hasher.Write(bodyBytes)
		bodyHash := hex.EncodeToString(hasher.Sum(nil))
		ha2 = h(hasher, fmt.Sprintf("%s:%s:%s", method, uri, bodyHash))
	} else {
		ha2 = h(hasher, fmt.Sprintf("%s:%s", method, uri))
	}

	if qop != "" {
		return h(hasher, fmt.Sprintf("%s:%s:%08x:%s:%s:%s", ha1, challenge.Nonce, nc, cnonce, qop, ha2)), nil
	}
	return h(hasher, fmt.Sprintf("%s:%s:%s", ha1, challenge.Nonce, ha2)), nil
}

func formatDigestAuthorization(
	username string, challenge *digestChallenge, uri, algo, qop string,
	nc uint32, cnonce, response string,
) string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, username),
		fmt.Sprintf(`realm="%s"`, challenge.Realm),
		fmt.Sprintf(`nonce="%s"`, challenge.Nonce),
		fmt.Sprintf(`uri="%s"`, uri),
		fmt.Sprintf(`response="%s"`, response),
	}
	if algo != "" && (algo != "MD5" || qop != "") {
		parts = append(parts, fmt.Sprintf(`algorithm=%s`, algo))
	}
	if challenge.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, challenge.Opaque))
	}
	if qop != "" {
		parts = append(parts,
			fmt.Sprintf(`qop=%s`, qop),
			fmt.Sprintf(`nc=%08x`, nc),
			fmt.Sprintf(`cnonce="%s"`, cnonce))
	}
	return "Digest " + strings.Join(parts, ", ")
}
