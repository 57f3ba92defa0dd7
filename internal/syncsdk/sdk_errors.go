package syncsdk

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/imroc/req/v3"
)

var (
	ErrFileNotFound   = errors.New("sdk: file not found")
	ErrManifestFailed = errors.New("sdk: manifest failed")
	ErrUnhealthy      = errors.New("sdk: server unhealthy")
	ErrBadResponse    = errors.New("sdk: unexpected response")
)

const (
	CodeFileNotFound   = "E_FILE_NOT_FOUND"
	CodeManifestFailed = "E_MANIFEST_FAILED"
	CodeUnknownError   = "E_UNKNOWN_ERR"
)

// APIError is the error envelope returned by the sync server
type APIError struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrFileNotFound:
		return e.Code == CodeFileNotFound || e.Status == http.StatusNotFound
	case ErrManifestFailed:
		return e.Code == CodeManifestFailed
	}
	return false
}

// handleAPIError turns a transport error or an error state response into an error
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("sdk: %s: %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
			apiErr.Status = resp.GetStatusCode()
			return fmt.Errorf("sdk: %s: %w", operation, apiErr)
		}
		return fmt.Errorf("sdk: %s: %w", operation, &APIError{
			Code:    CodeUnknownError,
			Message: resp.Status,
			Status:  resp.GetStatusCode(),
		})
	}

	return nil
}

// decodeAPIError returns the error envelope of a streamed response. req fills ErrorResult even
// when auto-read is disabled, so the body is only consulted when that came back empty.
func decodeAPIError(resp *req.Response) *APIError {
	if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
		apiErr.Status = resp.GetStatusCode()
		return apiErr
	}

	apiErr := &APIError{Status: resp.GetStatusCode()}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || jsonUnmarshal(body, apiErr) != nil || apiErr.Code == "" {
		apiErr.Code = CodeUnknownError
		apiErr.Message = resp.Status
	}
	return apiErr
}
