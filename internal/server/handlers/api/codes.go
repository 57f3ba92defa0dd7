package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeNotFound       = "E_NOT_FOUND"       // no such route

	// Data directory errors
	CodeFileNotFound   = "E_FILE_NOT_FOUND"   // the requested file does not exist under the data directory.
	CodeNotRegularFile = "E_NOT_REGULAR_FILE" // the requested path exists but is a directory or special file.
	CodeFileReadFailed = "E_FILE_READ_FAILED" // the file exists but could not be opened.

	// Listing errors
	CodeManifestFailed = "E_MANIFEST_FAILED" // the data directory could not be walked to build a manifest.
	CodeInfoFailed     = "E_INFO_FAILED"     // the data directory could not be measured for server info.
)
