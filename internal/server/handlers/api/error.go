package api

import "fmt"

// ErrorResponse is the envelope of every failed request.
// Success is always false so clients can tell an error from an empty result.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("sync api error: code=%s, message=%s", e.Code, e.Message)
}

func NewError(code string, msg string) ErrorResponse {
	return ErrorResponse{Code: code, Message: msg}
}
