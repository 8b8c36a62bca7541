package response

import "net/http"

// APIResponseCode is the envelope-level status code.
type APIResponseCode int

const (
	APIResponseCodeOK            APIResponseCode = 0
	APIResponseCodeBadRequest    APIResponseCode = 40000
	APIResponseCodeUnauthorized  APIResponseCode = 40100
	APIResponseCodeForbidden     APIResponseCode = 40300
	APIResponseCodeNotFound      APIResponseCode = 40400
	APIResponseCodeConflict      APIResponseCode = 40900
	APIResponseCodeGone          APIResponseCode = 41000
	APIResponseCodeUnprocessable APIResponseCode = 42200
	APIResponseCodeQuota         APIResponseCode = 42900
	APIResponseCodeError         APIResponseCode = 50000
	APIResponseCodeBadGateway    APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:            "ok",
	APIResponseCodeBadRequest:    "bad request",
	APIResponseCodeUnauthorized:  "unauthorized",
	APIResponseCodeForbidden:     "forbidden",
	APIResponseCodeNotFound:      "not found",
	APIResponseCodeConflict:      "conflict",
	APIResponseCodeGone:          "gone",
	APIResponseCodeUnprocessable: "unprocessable",
	APIResponseCodeQuota:         "quota exceeded",
	APIResponseCodeError:         "unexpected error",
	APIResponseCodeBadGateway:    "upstream error",
}

var statusToCode = map[int]APIResponseCode{
	http.StatusBadRequest:          APIResponseCodeBadRequest,
	http.StatusUnauthorized:        APIResponseCodeUnauthorized,
	http.StatusForbidden:           APIResponseCodeForbidden,
	http.StatusNotFound:            APIResponseCodeNotFound,
	http.StatusConflict:            APIResponseCodeConflict,
	http.StatusGone:                APIResponseCodeGone,
	http.StatusUnprocessableEntity: APIResponseCodeUnprocessable,
	http.StatusTooManyRequests:     APIResponseCodeQuota,
	http.StatusBadGateway:          APIResponseCodeBadGateway,
}

// CodeForStatus maps an HTTP status to the envelope code, defaulting to APIResponseCodeError.
func CodeForStatus(status int) APIResponseCode {
	if code, ok := statusToCode[status]; ok {
		return code
	}
	return APIResponseCodeError
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// ErrorBody is the data payload of a failed request.
type ErrorBody struct {
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}
