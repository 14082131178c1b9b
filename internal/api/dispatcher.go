package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// TokenProvider supplies the bearer credential for backend calls.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Caller performs backend operations. Dispatcher is the HTTP implementation.
type Caller interface {
	Call(ctx context.Context, op Operation, body any, params Params) (json.RawMessage, error)
}

// RequestFailure is returned for a non-2xx response or a transport error.
type RequestFailure struct {
	Operation  Operation
	StatusCode int // 0 for transport errors
	Message    string
	Err        error
}

func (e *RequestFailure) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request %s failed: %v", e.Operation, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("request %s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request %s failed with status %d", e.Operation, e.StatusCode)
}

func (e *RequestFailure) Unwrap() error {
	return e.Err
}

func (e *RequestFailure) Code() cerr.Code {
	if e.StatusCode == 0 {
		return cerr.Unavailable
	}
	return cerr.CodeFromHTTPStatus(e.StatusCode)
}

// IsRequestFailure reports whether err came back from the backend or the network.
func IsRequestFailure(err error) bool {
	var rf *RequestFailure
	return errors.As(err, &rf)
}

// Dispatcher turns operations into authenticated HTTP requests.
// Retries are left to callers.
type Dispatcher struct {
	baseURL string
	client  *http.Client
	tokens  TokenProvider

	mu    sync.Mutex
	token string
}

type DispatcherOption func(*Dispatcher)

func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.client = c
	}
}

func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.client = &http.Client{Timeout: timeout}
	}
}

func NewDispatcher(baseURL string, tokens TokenProvider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  http.DefaultClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// accessToken fetches the credential once per session; a failed fetch is not cached.
func (d *Dispatcher) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token != "" {
		return d.token, nil
	}
	if d.tokens == nil {
		return "", cerr.NewError(cerr.Unauthenticated, "no token provider configured", nil)
	}
	token, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	d.token = token
	return token, nil
}

func (d *Dispatcher) Call(ctx context.Context, op Operation, body any, params Params) (json.RawMessage, error) {
	req, err := Describe(op, body, params)
	if err != nil {
		return nil, err
	}
	if u, ok := req.Upload(); ok {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := d.newHTTPRequest(ctx, req, token)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		slog.WarnContext(ctx, "request failed", "method", req.Method, "path", req.Path, clog.ErrorAttributeKey, err)
		return nil, &RequestFailure{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	clog.Log(ctx, clog.HTTPStatusToLevel(resp.StatusCode), "request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestFailure{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			Err:        readErr,
		}
	}
	if readErr != nil {
		return nil, &RequestFailure{Operation: op, StatusCode: resp.StatusCode, Err: readErr}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, &RequestFailure{Operation: op, StatusCode: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(data), nil
}

func (d *Dispatcher) newHTTPRequest(ctx context.Context, req *Request, token string) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Method == http.MethodGet || req.Body == nil:
	default:
		if u, ok := req.Upload(); ok {
			r, ct, err := u.encode()
			if err != nil {
				return nil, cerr.NewError(cerr.Internal, "failed to encode upload", err)
			}
			body, contentType = r, ct
		} else {
			data, err := json.Marshal(req.Body)
			if err != nil {
				return nil, cerr.NewError(cerr.InvalidArgument, "request body is not serializable", err)
			}
			body, contentType = bytes.NewReader(data), "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, d.baseURL+req.Path, body)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}
