package response

import (
	"github.com/fatflowers/bookrental/pkg/errs"
)

// Response codes of the JSON envelope
type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	APIResponseCodeForbidden    APIResponseCode = 40300
	APIResponseCodeNotFound     APIResponseCode = 40400
	APIResponseCodeConflict     APIResponseCode = 40900
	// APIResponseCodeRejected marks an expected business refusal such as
	// "already rented"; the message is meant for the end user.
	APIResponseCodeRejected APIResponseCode = 42200
	APIResponseCodeError    APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:           "ok",
	APIResponseCodeBadRequest:   "bad request",
	APIResponseCodeUnauthorized: "unauthorized",
	APIResponseCodeForbidden:    "forbidden",
	APIResponseCodeNotFound:     "not found",
	APIResponseCodeConflict:     "conflict",
	APIResponseCodeRejected:     "rejected",
	APIResponseCodeError:        "unexpected error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// CodeOf maps an error's kind to a response code.
func CodeOf(err error) APIResponseCode {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return APIResponseCodeBadRequest
	case errs.KindAuthorization:
		return APIResponseCodeForbidden
	case errs.KindNotFound:
		return APIResponseCodeNotFound
	case errs.KindConflict:
		return APIResponseCodeConflict
	default:
		return APIResponseCodeError
	}
}

// FromError builds the error envelope for err. Internal faults carry their
// full text, matching the rest of the API.
func FromError(err error) *APIResponse[any] {
	return ErrorT[any](CodeOf(err), errs.Message(err))
}
