package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// RequestDecorator adjusts an outgoing request before it is sent.
type RequestDecorator func(req *http.Request)

// ResponseNormalizer turns a round trip outcome into nil or an *APIError.
// status and body are zero when transportErr is set.
type ResponseNormalizer func(status int, body []byte, transportErr error) error

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// JSONHeaders sets JSON content negotiation headers.
func JSONHeaders() RequestDecorator {
	return func(req *http.Request) {
		req.Header.Set("Accept", "application/json")
		if req.Body != nil && req.Body != http.NoBody {
			req.Header.Set("Content-Type", "application/json")
		}
	}
}

// RequestID tags the request with a fresh uuid unless one is already set.
func RequestID() RequestDecorator {
	return func(req *http.Request) {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
	}
}

// BearerAuth attaches the token from src when there is one.
func BearerAuth(src TokenSource) RequestDecorator {
	return func(req *http.Request) {
		if src == nil {
			return
		}
		if token := src(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// Chain applies decorators in order.
func Chain(decorators ...RequestDecorator) RequestDecorator {
	return func(req *http.Request) {
		for _, d := range decorators {
			d(req)
		}
	}
}

// Normalize builds the response normalizer. onUnauthorized runs synchronously
// on a 401, before the error is returned to the caller.
func Normalize(onUnauthorized func()) ResponseNormalizer {
	return func(status int, body []byte, transportErr error) error {
		if transportErr != nil {
			return apierrors.FromTransport(transportErr, isTimeout(transportErr))
		}
		if status >= 200 && status < 300 {
			return nil
		}
		apiErr := apierrors.FromResponse(status, body)
		if status == http.StatusUnauthorized && onUnauthorized != nil {
			onUnauthorized()
		}
		return apiErr
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
