package restsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
)

// Transport moves row payloads to and from a remote store.
type Transport interface {
	// Push stores one row. An empty id creates the row remotely. The
	// stored payload is returned; it may carry a server-assigned id.
	Push(ctx context.Context, id string, data []byte) ([]byte, error)
	// Pull returns every remote row payload.
	Pull(ctx context.Context) ([][]byte, error)
}

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// BaseURL is the collection endpoint, e.g. "http://host/api/rows".
	BaseURL string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxFailures is the number of consecutive failures that opens the
	// circuit.
	MaxFailures uint32

	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration

	Client *http.Client
	Logger logr.Logger
}

// DefaultHTTPConfig returns defaults for baseURL.
func DefaultHTTPConfig(baseURL string) HTTPConfig {
	return HTTPConfig{
		BaseURL:     baseURL,
		Timeout:     10 * time.Second,
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
		Logger:      logr.Discard(),
	}
}

// HTTPTransport talks JSON over HTTP: GET base for the list, POST base to
// create and PUT base/{id} to replace. Requests run behind a circuit
// breaker.
type HTTPTransport struct {
	base    string
	client  *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     logr.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	log := cfg.Logger.WithName("restsync")
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}

	t := &HTTPTransport{
		base:    strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  client,
		timeout: cfg.Timeout,
		log:     log,
	}
	t.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    t.base,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
		},
	})
	return t
}

// State returns the circuit breaker state.
func (t *HTTPTransport) State() string {
	return t.breaker.State().String()
}

// Push creates or replaces one row.
func (t *HTTPTransport) Push(ctx context.Context, id string, data []byte) ([]byte, error) {
	method, endpoint := http.MethodPost, t.base
	if id != "" {
		method, endpoint = http.MethodPut, t.base+"/"+url.PathEscape(id)
	}
	body, err := t.do(ctx, method, endpoint, data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s %s", ErrPayload, method, endpoint)
	}
	return body, nil
}

// Pull lists every row. The response is a JSON array of objects, or an
// object whose "rows" member is one.
func (t *HTTPTransport) Pull(ctx context.Context) ([][]byte, error) {
	body, err := t.do(ctx, http.MethodGet, t.base, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: GET %s", ErrPayload, t.base)
	}

	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("rows")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: GET %s: expected an array", ErrPayload, t.base)
	}

	var rows [][]byte
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		rows = append(rows, []byte(item.Raw))
	}
	return rows, nil
}

func (t *HTTPTransport) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	body, err := t.breaker.Execute(func() ([]byte, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: %s %s: %d", ErrStatus, method, endpoint, resp.StatusCode)
		}
		return b, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, t.base)
	}
	if err != nil {
		t.log.V(1).Info("request failed", "method", method, "url", endpoint, "error", err.Error())
	}
	return body, err
}
