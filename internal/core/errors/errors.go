// Package errors defines the error taxonomy for the trustfabric core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Is and As re-export the standard helpers so callers inside the core can
// depend on a single errors package.
func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }

// Class groups errors by how the caller should react to them. Structural
// errors can never succeed on retry, cryptographic errors indicate a
// misbehaving or malicious requester, policy errors indicate a well-formed
// request sent to the wrong authority, state errors are caller-sequencing
// mistakes, and chain errors come from offline chain validation.
type Class string

const (
	ClassStructural    Class = "structural"
	ClassCryptographic Class = "cryptographic"
	ClassPolicy        Class = "policy"
	ClassState         Class = "state"
	ClassChain         Class = "chain"
)

// DomainError represents errors in the certificate-authority domain logic.
type DomainError struct {
	Code    string
	Class   Class
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so wrapped instances
// still satisfy errors.Is against the sentinel values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Structural errors: the request can never succeed and must be rejected
// without retry.
var (
	ErrMalformedName = &DomainError{
		Code:    "MALFORMED_NAME",
		Class:   ClassStructural,
		Message: "common name does not satisfy the identity grammar",
	}

	ErrUnknownRole = &DomainError{
		Code:    "UNKNOWN_ROLE",
		Class:   ClassStructural,
		Message: "no known role matches the common name label",
	}

	ErrServiceIDOutOfRange = &DomainError{
		Code:    "SERVICE_ID_OUT_OF_RANGE",
		Class:   ClassStructural,
		Message: "service id is outside the unsigned 32-bit range",
	}

	ErrRoleNotPermittedHere = &DomainError{
		Code:    "ROLE_NOT_PERMITTED_HERE",
		Class:   ClassStructural,
		Message: "role kind does not match what this context expects",
	}

	ErrInvalidIdentity = &DomainError{
		Code:    "INVALID_IDENTITY",
		Class:   ClassStructural,
		Message: "identity is missing a required component",
	}

	ErrMalformedSubject = &DomainError{
		Code:    "MALFORMED_SUBJECT",
		Class:   ClassStructural,
		Message: "request subject carries unexpected attributes or no common name",
	}

	ErrMissingSubjectAltName = &DomainError{
		Code:    "MISSING_SUBJECT_ALT_NAME",
		Class:   ClassStructural,
		Message: "request carries no subject alternative DNS name",
	}

	ErrTooManySubjectAltNames = &DomainError{
		Code:    "TOO_MANY_SUBJECT_ALT_NAMES",
		Class:   ClassStructural,
		Message: "request carries more than one subject alternative name",
	}

	ErrSubjectAltNameMismatch = &DomainError{
		Code:    "SUBJECT_ALT_NAME_MISMATCH",
		Class:   ClassStructural,
		Message: "subject alternative name differs from the common name",
	}
)

// Cryptographic errors: logged distinctly for security monitoring.
var (
	ErrInvalidRequestSignature = &DomainError{
		Code:    "INVALID_REQUEST_SIGNATURE",
		Class:   ClassCryptographic,
		Message: "request self-signature does not verify against its public key",
	}

	ErrUnsupportedAlgorithm = &DomainError{
		Code:    "UNSUPPORTED_ALGORITHM",
		Class:   ClassCryptographic,
		Message: "signature or digest algorithm is not in the accepted set",
	}

	ErrMissingKeyUsageExtension = &DomainError{
		Code:    "MISSING_KEY_USAGE_EXTENSION",
		Class:   ClassCryptographic,
		Message: "request does not declare a key usage extension",
	}
)

// Policy errors: a correctly-formed request sent to the wrong authority.
var (
	ErrRoleNotAccepted = &DomainError{
		Code:    "ROLE_NOT_ACCEPTED",
		Class:   ClassPolicy,
		Message: "this authority's policy does not issue certificates for the role",
	}

	ErrNotACertifyingAuthority = &DomainError{
		Code:    "NOT_A_CERTIFYING_AUTHORITY",
		Class:   ClassPolicy,
		Message: "credential is not a certifying authority or holds no private key",
	}
)

// State errors: caller-sequencing mistakes.
var (
	ErrAlreadyInitialized = &DomainError{
		Code:    "ALREADY_INITIALIZED",
		Class:   ClassState,
		Message: "credential already holds key or certificate material",
	}

	ErrAlreadyExists = &DomainError{
		Code:    "ALREADY_EXISTS",
		Class:   ClassState,
		Message: "persisted material already exists and overwrite was not requested",
	}

	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Class:   ClassState,
		Message: "no persisted material at the requested path",
	}

	ErrDecryptionFailed = &DomainError{
		Code:    "DECRYPTION_FAILED",
		Class:   ClassState,
		Message: "private key could not be decrypted with the supplied passphrase",
	}

	ErrIO = &DomainError{
		Code:    "IO_ERROR",
		Class:   ClassState,
		Message: "storage operation failed",
	}
)

// Chain validation errors: retain enough context to be actionable in an
// audit log; never retried automatically.
var (
	ErrChainBroken = &DomainError{
		Code:    "CHAIN_BROKEN",
		Class:   ClassChain,
		Message: "a certification path link failed signature or name verification",
	}

	ErrExpiredCertificate = &DomainError{
		Code:    "EXPIRED_CERTIFICATE",
		Class:   ClassChain,
		Message: "a certificate in the path is outside its validity window",
	}

	ErrUntrustedRoot = &DomainError{
		Code:    "UNTRUSTED_ROOT",
		Class:   ClassChain,
		Message: "certification path does not terminate at the trusted root",
	}
)

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *DomainError, err error) error {
	return &DomainError{
		Code:    base.Code,
		Class:   base.Class,
		Message: base.Message,
		Err:     err,
	}
}

// Wrapf returns a copy of base with a formatted detail message appended.
func Wrapf(base *DomainError, format string, args ...any) error {
	return &DomainError{
		Code:    base.Code,
		Class:   base.Class,
		Message: fmt.Sprintf("%s: %s", base.Message, fmt.Sprintf(format, args...)),
	}
}

// ClassOf reports the taxonomy class of err, or an empty class for errors
// originating outside the domain.
func ClassOf(err error) Class {
	var de *DomainError
	if As(err, &de) {
		return de.Class
	}
	return ""
}

// ValidationError represents configuration field validation errors.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}
