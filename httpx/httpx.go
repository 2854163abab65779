package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/byte4ever/onion"
)

// ErrorClass tells the middleware and error hook how to treat an HTTP
// status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the error may go away on its own (e.g. 429, 503).
	Transient
	// Permanent means the error will not go away (e.g. 400).
	Permanent
)

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic
// without modifying the adapter.
type Classifier func(statusCode int) ErrorClass

// StatusError is returned when the Classifier marks a status
// code as Transient or Permanent. The original response
// remains accessible for header/body inspection.
type StatusError struct {
	// Response is the original HTTP response that triggered
	// the error. The body has not been read or closed.
	Response   *http.Response
	StatusCode int
	Class      ErrorClass
}

// Error returns a human-readable description of the status
// error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// IsTransient reports whether err is a [*StatusError] classified as
// Transient.
func IsTransient(err error) bool {
	var se *StatusError

	return errors.As(err, &se) && se.Class == Transient
}

// DefaultClassifier treats 2xx and 3xx as success, 408, 429 and 5xx as
// transient, and everything else as permanent.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode < http.StatusBadRequest:
		return Success
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= http.StatusInternalServerError:
		return Transient
	default:
		return Permanent
	}
}

// Client wraps an http.Client with an onion function and HTTP status code
// classification.
//
// Pattern: Adapter — bridges net/http and onion by translating HTTP status
// codes into errors the chain and error hook can act on.
type Client struct {
	hc *http.Client
	f  *onion.Func[*http.Request, *http.Response]
	cl Classifier
}

// NewClient creates a Client that executes HTTP requests through an onion
// function built with opts. A nil hc uses [http.DefaultClient]; a nil cl
// uses [DefaultClassifier].
func NewClient(
	name string,
	hc *http.Client,
	cl Classifier,
	opts ...any,
) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}

	if cl == nil {
		cl = DefaultClassifier
	}

	c := &Client{hc: hc, cl: cl}

	f, err := onion.New(name, c.send, opts...)
	if err != nil {
		return nil, fmt.Errorf("httpx: %w", err)
	}

	c.f = f

	return c, nil
}

// Do sends req through the onion function. The request's context is
// replaced by ctx.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.f.Call(ctx, req.WithContext(ctx))
}

// Status returns the invocation counters of the underlying function.
func (c *Client) Status() onion.FunctionStatus {
	return c.f.Status()
}

func (c *Client) send(
	ctx context.Context,
	req onion.Request[*http.Request],
) (*http.Response, error) {
	resp, err := c.hc.Do(req.Input.WithContext(ctx))
	if err != nil {
		return nil, err //nolint:wrapcheck // transport error returned as-is
	}

	if class := c.cl(resp.StatusCode); class != Success {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Response:   resp,
			Class:      class,
		}
	}

	return resp, nil
}
