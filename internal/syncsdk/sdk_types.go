package syncsdk

import "github.com/stlauncher/stsync/internal/manifest"

const (
	HeaderUserAgent = "User-Agent"
	HeaderVersion   = "X-Stsync-Version"
	HeaderDeviceId  = "X-Stsync-Device-Id"
	HeaderFileMtime = "X-File-Mtime"
)

const (
	pathHealth   = "/health"
	pathInfo     = "/info"
	pathManifest = "/manifest"
	pathBundle   = "/zip"
	pathFile     = "/file"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DataPath  string `json:"data_path"`
	Version   string `json:"version"`
}

func (h *HealthResponse) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

type ServerInfo struct {
	DataPath  string `json:"data_path"`
	Port      int    `json:"port"`
	Host      string `json:"host"`
	Running   bool   `json:"running"`
	TotalSize int64  `json:"total_size"`
	FileCount int    `json:"file_count"`
}

type InfoResponse struct {
	Success    bool        `json:"success"`
	ServerInfo *ServerInfo `json:"server_info"`
}

type ManifestResponse struct {
	Success     bool              `json:"success"`
	Manifest    manifest.Manifest `json:"manifest"`
	TotalFiles  int               `json:"total_files"`
	GeneratedAt string            `json:"generated_at"`
	Error       string            `json:"error,omitempty"`
}
