package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an Error. The workflow kinds map one-to-one onto the
// messages shown to the user.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindMissingInput  Kind = "missing_input"
	KindUpload        Kind = "upload"
	KindPollTimeout   Kind = "poll_timeout"
	KindAssetFailed   Kind = "asset_failed"
	KindGeneration    Kind = "generation"
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
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

// E builds an Error of the given kind.
func E(op string, kind Kind, err error, message string, code int) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Configuration(op string, message string) *Error {
	return E(op, KindConfiguration, nil, message, http.StatusServiceUnavailable)
}

func MissingInput(op string, message string) *Error {
	return E(op, KindMissingInput, nil, message, http.StatusBadRequest)
}

func Upload(op string, err error) *Error {
	return E(op, KindUpload, err, "upload failed", http.StatusBadGateway)
}

func PollTimeout(op string, name string, timeout time.Duration) *Error {
	return E(op, KindPollTimeout, nil,
		fmt.Sprintf("file %s did not become ACTIVE within %s", name, timeout),
		http.StatusGatewayTimeout)
}

func AssetFailed(op string, name string) *Error {
	return E(op, KindAssetFailed, nil,
		fmt.Sprintf("remote processing of file %s failed", name),
		http.StatusBadGateway)
}

func Generation(op string, err error) *Error {
	return E(op, KindGeneration, err, "content generation failed", http.StatusBadGateway)
}

func InvalidInput(op string, err error, message string) *Error {
	return E(op, KindInvalidInput, err, message, http.StatusBadRequest)
}

func NotFound(op string, err error, message string) *Error {
	return E(op, KindNotFound, err, message, http.StatusNotFound)
}

func Internal(op string, err error, message string) *Error {
	return E(op, KindInternal, err, message, http.StatusInternalServerError)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

// StatusCode returns the HTTP status carried by err, defaulting to 500.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
