package datasync

import "github.com/stlauncher/stsync/internal/manifest"

const timestampFormat = "2006-01-02T15:04:05.000000"

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DataPath  string `json:"data_path"`
	Version   string `json:"version"`
}

type ManifestResponse struct {
	Success     bool              `json:"success"`
	Manifest    manifest.Manifest `json:"manifest"`
	TotalFiles  int               `json:"total_files"`
	GeneratedAt string            `json:"generated_at"`
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

type FileRequest struct {
	Path string `form:"path"`
}
