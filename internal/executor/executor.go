// Package executor performs the actual authenticated HTTP and CLI calls on
// behalf of a session. Credentials are resolved from the environment or a
// local credential file and never appear in results: callers only ever see
// the sanitized Result shape.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"api-recorder/internal/auth"
	"api-recorder/internal/config"
	"api-recorder/internal/httpclient"
	"api-recorder/internal/logging"
	"api-recorder/internal/pathexpr"
	"api-recorder/internal/util"
)

// Result is the outcome of one execution, safe to persist and to return to
// automated callers. Ordinary failures (network errors, non-2xx statuses,
// non-zero exits) are folded into Success/Error, never raised.
type Result struct {
	Success    bool           `json:"success"`
	StatusCode *int           `json:"status_code"`
	Body       map[string]any `json:"body"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Failure builds a failed Result with no response data.
func Failure(err string) Result {
	return Result{Body: map[string]any{}, Error: err}
}

// DefaultSleep is the pause function used between poll retries.
// Exported so tests can replace it.
var DefaultSleep = time.Sleep

// Executor runs requests against one SUT using its connection config.
type Executor struct {
	sutName     string
	cfg         *config.SUTConfig
	credentials map[string]string
	client      *http.Client
}

// New builds an Executor for a SUT under the given workspace root. The
// SUT's credentials are loaded eagerly so that a misconfigured auth type is
// reported up front rather than on the first call.
func New(root, sutName string) (*Executor, error) {
	cfg, err := config.LoadSUT(root, sutName)
	if err != nil {
		return nil, err
	}
	creds := LoadCredentials(root, cfg)
	client, err := httpclient.NewClient(cfg.Connection.Auth.Type, creds)
	if err != nil {
		return nil, err
	}
	return &Executor{
		sutName:     config.CanonicalSUTName(sutName),
		cfg:         cfg,
		credentials: creds,
		client:      client,
	}, nil
}

// LoadCredentials resolves credentials for a SUT: environment variables
// named by the auth config first, then a JSON credential file fallback
// (auth.credential_file, or ~/.api-recorder/credentials.json).
func LoadCredentials(root string, cfg *config.SUTConfig) map[string]string {
	creds := make(map[string]string)
	authCfg := cfg.Connection.Auth

	for key, envName := range authCfg.EnvVars {
		if value := os.Getenv(envName); value != "" {
			creds[key] = value
		}
	}
	if len(creds) > 0 {
		return creds
	}

	credFile := authCfg.CredentialFile
	if credFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return creds
		}
		credFile = filepath.Join(home, ".api-recorder", "credentials.json")
	} else {
		credFile = util.ExpandEnv(credFile)
		if strings.HasPrefix(credFile, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				credFile = filepath.Join(home, credFile[2:])
			}
		}
	}

	data, err := os.ReadFile(credFile)
	if err != nil {
		return creds
	}
	var loaded map[string]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		logging.Logf(logging.Warning, "Ignoring malformed credential file '%s': %v", credFile, err)
		return creds
	}
	for k, v := range loaded {
		if v != "" {
			creds[k] = v
		}
	}
	return creds
}

// buildURL joins the SUT host, base path, and a request path.
func (e *Executor) buildURL(path string) string {
	conn := e.cfg.Connection
	host := conn.Host
	if host != "" && !strings.Contains(host, "://") {
		host = "https://" + host
	}
	basePath := strings.TrimRight(conn.BasePath, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return host + basePath + path
}

// ExecuteHTTP performs one HTTP request described by
// {method, path, headers?, query_params?, body?}. A 2xx status is success;
// everything else, including transport errors, is a failed Result.
func (e *Executor) ExecuteHTTP(request map[string]any) Result {
	request, _ = util.ExpandEnvAny(request).(map[string]any)

	method := strings.ToUpper(stringField(request, "method", "GET"))
	path := stringField(request, "path", "")
	fullURL := e.buildURL(path)

	var bodyReader *bytes.Reader
	var bodyBytes []byte
	if body, ok := request["body"]; ok && body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return Failure(fmt.Sprintf("failed to encode request body: %v", err))
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	start := time.Now()

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequest(method, fullURL, bodyReader)
	} else {
		req, err = http.NewRequest(method, fullURL, nil)
	}
	if err != nil {
		return Failure(fmt.Sprintf("failed to create request: %v", err))
	}
	if bodyBytes != nil {
		captured := bodyBytes
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(captured)), nil
		}
	}

	if params, ok := request["query_params"].(map[string]any); ok && len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, util.Stringify(v))
		}
		req.URL.RawQuery = query.Encode()
	}

	hasContentType := false
	if headers, ok := request["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, util.Stringify(v))
			if strings.EqualFold(k, "Content-Type") {
				hasContentType = true
			}
		}
	}
	if !hasContentType && bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := auth.ApplyHeaders(req, e.cfg.Connection.Auth.Type, e.credentials); err != nil {
		return Failure(err.Error())
	}

	logging.Logf(logging.Debug, "Sending %s %s", method, fullURL)
	resp, err := e.client.Do(req)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		return Result{Body: map[string]any{}, Error: err.Error(), DurationMS: durationMS}
	}
	defer resp.Body.Close()

	raw := new(bytes.Buffer)
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		status := resp.StatusCode
		return Result{StatusCode: &status, Body: map[string]any{}, Error: fmt.Sprintf("failed to read response body: %v", err), DurationMS: durationMS}
	}

	body := decodeBody(raw.Bytes())
	status := resp.StatusCode
	success := status >= 200 && status < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", status)
	}
	return Result{
		Success:    success,
		StatusCode: &status,
		Body:       body,
		Error:      errMsg,
		DurationMS: durationMS,
	}
}

// ExecuteCLI runs a subprocess described by {tool, args}. A missing tool or
// non-list args fails immediately with no process spawned; the exit code is
// reported as the status code.
func (e *Executor) ExecuteCLI(request map[string]any) Result {
	request, _ = util.ExpandEnvAny(request).(map[string]any)

	tool := stringField(request, "tool", "")
	if tool == "" {
		return Failure("Missing 'tool' for CLI request")
	}
	rawArgs, present := request["args"]
	argList, ok := rawArgs.([]any)
	if present && !ok {
		return Failure("'args' must be a list")
	}
	args := make([]string, 0, len(argList))
	for _, a := range argList {
		args = append(args, util.Stringify(a))
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpclient.DefaultTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	durationMS := time.Since(start).Milliseconds()

	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return Result{Body: map[string]any{}, Error: runErr.Error(), DurationMS: durationMS}
		}
	}

	exitCode := cmd.ProcessState.ExitCode()
	success := exitCode == 0

	body := map[string]any{}
	out := strings.TrimSpace(stdout.String())
	if out != "" {
		if strings.HasPrefix(out, "{") && gjson.Valid(out) {
			body = decodeBody([]byte(out))
		} else {
			body = map[string]any{"stdout": util.Truncate(out, 2000)}
		}
	}
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		body["stderr"] = util.Truncate(errOut, 2000)
	}

	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("Exit %d", exitCode)
	}
	return Result{
		Success:    success,
		StatusCode: &exitCode,
		Body:       body,
		Error:      errMsg,
		DurationMS: durationMS,
	}
}

// PollUntilReady repeats ExecuteHTTP until the condition expression holds on
// a successful response or the retry budget is exhausted, sleeping a fixed
// delay between attempts. The last observed result is returned either way.
func (e *Executor) PollUntilReady(request map[string]any, condition string, maxRetries, delaySeconds int) Result {
	var last Result
	executed := false
	for i := 0; i < maxRetries; i++ {
		last = e.ExecuteHTTP(request)
		executed = true
		if last.Success && pathexpr.Condition(last.Body, condition) {
			return last
		}
		logging.Logf(logging.Debug, "Poll attempt %d/%d not ready, sleeping %ds", i+1, maxRetries, delaySeconds)
		DefaultSleep(time.Duration(delaySeconds) * time.Second)
	}
	if !executed {
		return Failure("No attempts executed")
	}
	return last
}

// decodeBody interprets raw response bytes as a JSON object; anything else
// (arrays, scalars, non-JSON text) is wrapped as {"raw": <snippet>}.
func decodeBody(raw []byte) map[string]any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil && body != nil {
		return body
	}
	return map[string]any{"raw": util.Truncate(string(raw), 1000)}
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
