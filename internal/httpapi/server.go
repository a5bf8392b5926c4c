// Package httpapi exposes the pipeline over HTTP: quality listing, downloads and the
// resulting files.
package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
	"golang.org/x/time/rate"
)

const videosPath = "/videos"

type Orchestrator interface {
	Info(ctx context.Context, sourceURL string) ([]app.StreamDescriptor, error)
	Download(ctx context.Context, req app.DownloadRequest) (app.DownloadResult, error)
}

type Options struct {
	APIKey string
	// BaseURL prefixes file links in /download responses.
	BaseURL   string
	OutputDir string
	// Limiter may be nil to disable rate limiting.
	Limiter *rate.Limiter
}

type Server struct {
	orchestrator Orchestrator
	opts         Options
}

func New(orchestrator Orchestrator, opts Options) *Server {
	return &Server{
		orchestrator: orchestrator,
		opts:         opts,
	}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestContext())

	r.GET("/healthz", s.handleHealth)
	r.Static(videosPath, s.opts.OutputDir)

	api := r.Group("/", authorize(s.opts.APIKey), rateLimit(s.opts.Limiter))
	api.POST("/info", s.handleInfo)
	api.POST("/download", s.handleDownload)
	return r
}

type infoRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	Data struct {
		URL        string `json:"url"`
		Resolution string `json:"resolution"`
		IsAudio    bool   `json:"is_audio"`
	} `json:"data"`
}

type downloadResponse struct {
	OutputPath string `json:"output_path"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInfo(c *gin.Context) {
	var req infoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, errorBody("No URL provided"))
		return
	}
	options, err := s.orchestrator.Info(c.Request.Context(), req.URL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Data.URL == "" {
		c.JSON(http.StatusBadRequest, errorBody("No URL provided"))
		return
	}
	res, err := s.orchestrator.Download(c.Request.Context(), app.DownloadRequest{
		SourceURL:  req.Data.URL,
		Resolution: req.Data.Resolution,
		AudioOnly:  req.Data.IsAudio,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, downloadResponse{OutputPath: s.fileURL(res.Name)})
}

func (s *Server) fileURL(name string) string {
	return s.opts.BaseURL + videosPath + "/" + url.PathEscape(name)
}

func (s *Server) fail(c *gin.Context, err error) {
	log := logging.FromContextS(c.Request.Context())
	log.Errorw("Failed to process request", "error", err, "error_kind", app.KindOf(err))
	c.JSON(http.StatusInternalServerError, errorBody(app.UserMessage(err)))
}
