package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies a transport-level failure. Only the first three kinds
// are transient: they describe conditions that can clear up between attempts.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindNoConnectivity
	KindHostUnreachable
	KindTLSFailure
	KindHTTPStatus
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoConnectivity:
		return "no_connectivity"
	case KindHostUnreachable:
		return "host_unreachable"
	case KindTLSFailure:
		return "tls_failure"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// TransportError is a classified low-level HTTP failure. Status is only set
// for KindHTTPStatus.
type TransportError struct {
	Kind   ErrorKind
	Status int
	cause  error
}

func (e *TransportError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("transport: http status %d", e.Status)
	}
	if e.cause != nil {
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("transport: %s", e.Kind)
}

func (e *TransportError) Unwrap() error { return e.cause }

// Transient reports whether retrying the same request can plausibly succeed.
func (e *TransportError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindNoConnectivity, KindHostUnreachable:
		return true
	}
	return false
}

// APIError is a business failure reported by the server inside the response
// envelope (errorCode != 0). Deterministic, never retried.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: errorCode=%d errorMsg=%q", e.Code, e.Message)
}

// DecodeError means the response body did not match the expected shape. It
// indicates contract drift between client and server, not a user mistake.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.cause) }
func (e *DecodeError) Unwrap() error { return e.cause }

// IsTransient reports whether err is a transport failure worth retrying.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Transient()
}

// classify maps an error returned by http.Client.Do into a TransportError.
func classify(err error) *TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, cause: err}
	}

	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &recErr) {
		return &TransportError{Kind: KindTLSFailure, cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: KindHostUnreachable, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, cause: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return &TransportError{Kind: KindHostUnreachable, cause: err}
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.ENETDOWN) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return &TransportError{Kind: KindNoConnectivity, cause: err}
	}

	return &TransportError{Kind: KindUnknown, cause: err}
}
