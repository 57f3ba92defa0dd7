package datasync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stlauncher/stsync/internal/bundle"
	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/server/handlers/api"
	"github.com/stlauncher/stsync/internal/utils"
	"github.com/stlauncher/stsync/internal/version"
)

// DataSyncHandler serves a data directory read-only. It keeps no state between requests;
// every call walks the directory again.
type DataSyncHandler struct {
	builder *manifest.Builder
	jail    afero.Fs
	host    string
	port    int
}

func New(builder *manifest.Builder, host string, port int) *DataSyncHandler {
	return &DataSyncHandler{
		builder: builder,
		jail:    afero.NewBasePathFs(builder.Fs(), builder.Root()),
		host:    host,
		port:    port,
	}
}

func (h *DataSyncHandler) Health(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(timestampFormat),
		DataPath:  h.builder.Root(),
		Version:   version.Version,
	})
}

func (h *DataSyncHandler) Manifest(ctx *gin.Context) {
	m, err := h.builder.Build()
	if err != nil {
		slog.Error("manifest build", "root", h.builder.Root(), "error", err)
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeManifestFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &ManifestResponse{
		Success:     true,
		Manifest:    m,
		TotalFiles:  len(m),
		GeneratedAt: time.Now().Format(timestampFormat),
	})
}

func (h *DataSyncHandler) Info(ctx *gin.Context) {
	m, err := h.builder.Build()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInfoFailed, err)
		return
	}

	totalSize, err := h.builder.TotalSize()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInfoFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &InfoResponse{
		Success: true,
		ServerInfo: &ServerInfo{
			DataPath:  h.builder.Root(),
			Port:      h.port,
			Host:      h.host,
			Running:   true,
			TotalSize: totalSize,
			FileCount: len(m),
		},
	})
}

// Bundle streams the data directory as a ZIP archive. The archive is never buffered,
// so a failure halfway through can only be logged; the client sees a truncated archive.
func (h *DataSyncHandler) Bundle(ctx *gin.Context) {
	ctx.Header("Content-Type", "application/zip")
	ctx.Header("Content-Disposition", `inline; filename="data.zip"`)

	if ctx.Request.Method == http.MethodHead {
		ctx.Status(http.StatusOK)
		return
	}

	ctx.Status(http.StatusOK)
	start := time.Now()
	stats, err := bundle.NewProducer(h.builder).WriteTo(ctx.Writer)
	if err != nil {
		ctx.Error(err)
		slog.Error("bundle", "root", h.builder.Root(), "error", err)
		return
	}

	slog.Info("bundle",
		"files", stats.Files,
		"skipped", stats.Skipped,
		"size", humanize.Bytes(uint64(stats.Bytes)),
		"took", time.Since(start),
	)
}

func (h *DataSyncHandler) File(ctx *gin.Context) {
	var req FileRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	relPath, ok := CleanRelPath(req.Path)
	if !ok {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errors.New("`path` is required"))
		return
	}

	info, err := h.jail.Stat(relPath)
	if errors.Is(err, fs.ErrNotExist) {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeFileNotFound, fmt.Errorf("file not found: %s", relPath))
		return
	} else if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFileReadFailed, fmt.Errorf("stat %s: %w", relPath, err))
		return
	}

	if !info.Mode().IsRegular() {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeNotRegularFile, fmt.Errorf("not a file: %s", relPath))
		return
	}

	file, err := h.jail.Open(relPath)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFileReadFailed, fmt.Errorf("open %s: %w", relPath, err))
		return
	}
	defer file.Close()

	ctx.DataFromReader(http.StatusOK, info.Size(), utils.DetectContentType(relPath), file, map[string]string{
		"Last-Modified": info.ModTime().UTC().Format(http.TimeFormat),
		"X-File-Mtime":  strconv.FormatFloat(manifest.MtimeOf(info.ModTime()), 'f', 6, 64),
	})
}

// CleanRelPath turns a client supplied path into a slash separated path relative to the data root.
// Every `..` collapses at the root, so the result never points outside it.
func CleanRelPath(p string) (string, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "", false
	}
	return p, true
}
