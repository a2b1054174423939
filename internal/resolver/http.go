package resolver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"ontolock/internal/errors"
	"ontolock/internal/slogutil"
	"ontolock/internal/version"
)

// SecretVariable is the environment variable whose value, when present,
// signs forwarded request bodies.
const SecretVariable = "RESOLVER_SECRET"

// maxResponseSize caps how much of a resolver response is read.
const maxResponseSize = 4 * 1024 * 1024

var httpMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// HTTPStrategy recognises references of the form "[METHOD] URL", where the
// URL starts with http://, https:// or a ${VAR} placeholder, and forwards
// calls to that endpoint. Placeholders are expanded from the call's
// environment at call time.
type HTTPStrategy struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPStrategy creates a forwarding strategy. A zero timeout means 10s.
func NewHTTPStrategy(timeout time.Duration, logger *slog.Logger) *HTTPStrategy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &HTTPStrategy{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// TryResolve implements Strategy.
func (s *HTTPStrategy) TryResolve(ref string) (Resolver, bool) {
	method, target, ok := ParseHTTPReference(ref)
	if !ok {
		return nil, false
	}
	return &httpResolver{strategy: s, method: method, target: target}, true
}

// ParseHTTPReference splits a reference into method and URL template.
// The method defaults to POST.
func ParseHTTPReference(ref string) (method, target string, ok bool) {
	fields := strings.Fields(ref)
	switch len(fields) {
	case 1:
		method, target = http.MethodPost, fields[0]
	case 2:
		method, target = strings.ToUpper(fields[0]), fields[1]
		if !httpMethods[method] {
			return "", "", false
		}
	default:
		return "", "", false
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") && !strings.HasPrefix(target, "${") {
		return "", "", false
	}
	return method, target, true
}

// Expand substitutes ${VAR} placeholders from vars. Every placeholder must
// be defined.
func Expand(template string, vars map[string]string) (string, error) {
	var missing []string
	out := os.Expand(template, func(name string) string {
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("undefined variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

type httpResolver struct {
	strategy *HTTPStrategy
	method   string
	target   string
}

func (h *httpResolver) Resolve(ctx context.Context, call Call) (any, error) {
	raw, err := Expand(h.target, call.Environment.Variables)
	if err != nil {
		return nil, errors.NewError(errors.ResolverUnavailable, "cannot build resolver URL for "+call.Function, err).
			WithDetails(map[string]string{"environment": call.Environment.Name})
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf(errors.ResolverUnavailable, "resolver URL %q for %s is not an http(s) URL", raw, call.Function)
	}

	var body []byte
	if h.method == http.MethodGet || h.method == http.MethodDelete {
		q := u.Query()
		for k, v := range call.Args {
			q.Set(k, queryValue(v))
		}
		u.RawQuery = q.Encode()
	} else {
		body, err = json.Marshal(call.Args)
		if err != nil {
			return nil, errors.NewError(errors.InvalidArguments, "arguments are not JSON-encodable", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, h.method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewError(errors.ResolverUnavailable, "failed to build resolver request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "ontolock/"+version.Version)
	req.Header.Set("X-Ontolock-Function", call.Function)
	if secret := call.Environment.Variables[SecretVariable]; secret != "" {
		req.Header.Set("X-Ontolock-Signature-256", "sha256="+Sign(body, secret))
	}

	start := time.Now()
	resp, err := h.strategy.client.Do(req)
	if err != nil {
		return nil, errors.NewError(errors.ResolverUnavailable, "resolver request for "+call.Function+" failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewError(errors.ResolverUnavailable, "failed to read resolver response", err)
	}
	h.strategy.logger.Debug("Resolver responded",
		"function", call.Function,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf(errors.ResolverUnavailable, "resolver for %s returned HTTP %d", call.Function, resp.StatusCode).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": truncate(string(data), 512)})
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		// Non-JSON bodies are passed through as text.
		return string(data), nil
	}
	return out, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func queryValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case bool, float64, int, int64:
		return fmt.Sprint(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
