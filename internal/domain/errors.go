package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Services wrap these
// so handlers can map failures to HTTP status codes without leaking
// infrastructure detail. Credential failures are deliberately collapsed to a
// single opaque 401 at the boundary; the distinct sentinels exist so internal
// callers and tests can tell them apart.
var (
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrCredentialExpired = errors.New("credential expired")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrRateLimited       = errors.New("rate limited")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrBadRequest        = errors.New("bad request")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// IsCredentialFailure reports whether err belongs to the 401 class.
func IsCredentialFailure(err error) bool {
	return errors.Is(err, ErrCredentialInvalid) ||
		errors.Is(err, ErrCredentialExpired) ||
		errors.Is(err, ErrUnauthenticated)
}
