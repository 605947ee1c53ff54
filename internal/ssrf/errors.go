// Package ssrf guards outbound requests against server-side request forgery.
// It validates target URLs against a fixed deny-list of private, loopback,
// and link-local address patterns and provides a fetch client that
// re-validates every redirect hop.
//
// The hostname checks are purely textual: a public DNS name that resolves to
// a private address at connect time (DNS rebinding) is not caught. Closing
// that gap would require resolving before validating and pinning the dialer
// to the resolved address, which changes network-call semantics; it is left
// out deliberately.
package ssrf

import "fmt"

// Reason tags the distinct failure causes behind an egress rejection.
type Reason string

const (
	ReasonInvalidURL       Reason = "invalid_url"
	ReasonDisallowedScheme Reason = "disallowed_scheme"
	ReasonPrivateAddress   Reason = "private_address"
	ReasonMissingLocation  Reason = "missing_location"
	ReasonTooManyRedirects Reason = "too_many_redirects"
	ReasonResponseTooLarge Reason = "response_too_large"
	ReasonTimeout          Reason = "timeout"
)

// Error is the single error kind for all guard failures, distinguished by
// Reason. Message texts are stable; clients that matched on them before the
// Reason tag existed keep working.
type Error struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error constructors for the guard's failure paths

func newInvalidURLError(raw string, err error) *Error {
	return &Error{
		Reason:  ReasonInvalidURL,
		Message: fmt.Sprintf("invalid URL: %s", raw),
		Err:     err,
	}
}

func newDisallowedSchemeError(scheme string) *Error {
	return &Error{
		Reason:  ReasonDisallowedScheme,
		Message: fmt.Sprintf("protocol not allowed: %s", scheme),
	}
}

func newPrivateAddressError(hostname string) *Error {
	return &Error{
		Reason:  ReasonPrivateAddress,
		Message: fmt.Sprintf("private or internal addresses are not allowed: %s", hostname),
	}
}

func newMissingLocationError() *Error {
	return &Error{
		Reason:  ReasonMissingLocation,
		Message: "redirect response missing location header",
	}
}

func newTooManyRedirectsError(max int) *Error {
	return &Error{
		Reason:  ReasonTooManyRedirects,
		Message: fmt.Sprintf("too many redirects (max %d)", max),
	}
}

func newResponseTooLargeError(size, max int64) *Error {
	return &Error{
		Reason:  ReasonResponseTooLarge,
		Message: fmt.Sprintf("response too large: %d bytes exceeds limit of %d", size, max),
	}
}

func newTimeoutError(err error) *Error {
	return &Error{
		Reason:  ReasonTimeout,
		Message: "request timed out",
		Err:     err,
	}
}
