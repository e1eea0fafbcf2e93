// Package httpapi exposes the palette pipeline over HTTP with gin.
//
// Routes:
//   - POST /upload, POST /api/upload: multipart field "image"; optional query
//     parameters k (cluster count) and threshold (deduplication distance)
//   - GET /healthz: liveness probe
//
// Every response carries an X-Request-ID header; a client-supplied ID is
// echoed, otherwise a KSUID is generated.
package httpapi

import (
	"image"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/subject-palette/internal/pipeline"
)

// Processor runs the palette pipeline. *pipeline.Pipeline implements it.
type Processor interface {
	Process(img image.Image, opts ...pipeline.Option) (*pipeline.Result, error)
}

// Options configures the router.
type Options struct {
	// MaxUploadBytes limits the request body. Zero means 16 MiB.
	MaxUploadBytes int64
	// MaxClusters bounds the k query parameter. Zero means 16.
	MaxClusters int
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

const (
	defaultMaxUploadBytes = 16 << 20
	defaultMaxClusters    = 16
)

type handler struct {
	proc   Processor
	opts   Options
	logger *slog.Logger
}

// NewRouter returns a gin engine serving the palette API. A nil logger uses
// slog.Default.
func NewRouter(proc Processor, opts Options, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxClusters <= 0 {
		opts.MaxClusters = defaultMaxClusters
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	h := &handler{proc: proc, opts: opts, logger: logger}

	r := gin.New()
	r.MaxMultipartMemory = opts.MaxUploadBytes
	r.Use(requestID(), accessLog(logger), gin.Recovery(), cors(opts.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/upload", h.upload)
	r.POST("/api/upload", h.upload)
	return r
}
