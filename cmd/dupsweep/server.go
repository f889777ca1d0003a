package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

const shutdownTimeout = 5 * time.Second

// apiServer exposes the engine over JSON HTTP
type apiServer struct {
	engine *dupsweep.Engine
	log    zerolog.Logger
}

type scanRequest struct {
	Directory string              `json:"directory"`
	Options   *scanRequestOptions `json:"options"`
}

type scanRequestOptions struct {
	Extensions    []string `json:"extensions"`
	MaxFileSize   *int64   `json:"max_file_size"`
	Workers       int      `json:"workers"`
	Hash          string   `json:"hash"`
	Keep          string   `json:"keep"`
	Ignore        []string `json:"ignore"`
	SizePrefilter *bool    `json:"size_prefilter"`
}

type validateRequest struct {
	Path string `json:"path"`
}

type deleteFileRequest struct {
	FilePath string `json:"file_path"`
	DryRun   *bool  `json:"dry_run"`
}

type deleteManyRequest struct {
	FilePaths []string `json:"file_paths"`
	DryRun    *bool    `json:"dry_run"`
}

// deleteError names one path that was not removed
type deleteError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// newRouter builds the HTTP API. Cross-origin requests are only accepted from
// the given origins.
func newRouter(engine *dupsweep.Engine, log zerolog.Logger, origins []string) *gin.Engine {
	s := &apiServer{engine: engine, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/scan", s.handleScan)
	api.POST("/suggestions", s.handleSuggestions)
	api.POST("/validate-path", s.handleValidatePath)
	api.POST("/delete-file", s.handleDeleteFile)
	api.POST("/delete-duplicates", s.handleDeleteDuplicates)

	return router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

// engineFor applies a per-request dry-run override
func (s *apiServer) engineFor(dryRun *bool) *dupsweep.Engine {
	if dryRun == nil {
		return s.engine
	}
	return s.engine.WithDryRun(*dryRun)
}

func (s *apiServer) scanOptions(req *scanRequestOptions) dupsweep.ScanOptions {
	opts := s.engine.DefaultScanOptions()
	if req == nil {
		return opts
	}
	if req.Extensions != nil {
		opts.Extensions = dupsweep.NormaliseExtensions(req.Extensions)
	}
	if req.MaxFileSize != nil {
		opts.MaxFileSize = *req.MaxFileSize
	}
	if req.Workers != 0 {
		opts.Workers = req.Workers
	}
	if req.Hash != "" {
		opts.HashAlgorithm = req.Hash
	}
	if req.Keep != "" {
		opts.KeepPolicy = req.Keep
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, req.Ignore...)
	if req.SizePrefilter != nil {
		opts.SizePrefilter = *req.SizePrefilter
	}
	return opts
}

// scan runs a scan for the request, writing a 400 response on failure
func (s *apiServer) scan(ctx *gin.Context) (*dupsweep.ScanResult, bool) {
	var req scanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request: " + err.Error()})
		return nil, false
	}
	if req.Directory == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "directory is required"})
		return nil, false
	}

	result, err := s.engine.Scan(ctx.Request.Context(), req.Directory, s.scanOptions(req.Options))
	if err != nil {
		s.log.Warn().Err(err).Str("directory", req.Directory).Msg("Scan rejected")
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return nil, false
	}
	return result, true
}

func (s *apiServer) handleStatus(ctx *gin.Context) {
	opts := s.engine.DefaultScanOptions()
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version,
		"dry_run": s.engine.DryRun(),
		"defaults": gin.H{
			"hash":           opts.HashAlgorithm,
			"extensions":     opts.Extensions,
			"max_file_size":  opts.MaxFileSize,
			"workers":        opts.Workers,
			"keep":           opts.KeepPolicy,
			"size_prefilter": opts.SizePrefilter,
		},
	})
}

func (s *apiServer) handleScan(ctx *gin.Context) {
	result, ok := s.scan(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"directory":         result.Root,
		"report":            result,
		"processing_errors": result.Errors,
	})
}

func (s *apiServer) handleSuggestions(ctx *gin.Context) {
	result, ok := s.scan(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"directory":         result.Root,
		"suggestions":       result.Suggestions(),
		"total_space_saved": result.TotalReclaimable(),
	})
}

func (s *apiServer) handleValidatePath(ctx *gin.Context) {
	var req validateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "invalid request: " + err.Error()})
		return
	}

	info, err := dupsweep.ValidateRoot(req.Path)
	if err != nil {
		ctx.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"path":       info.Path,
		"file_count": info.FileCount,
		"dir_count":  info.DirCount,
	})
}

// outcomeStatus maps a single deletion outcome onto an HTTP status
func outcomeStatus(o dupsweep.DeletionOutcome) int {
	switch {
	case o.Deleted(), o.Reason == dupsweep.ReasonDryRun:
		return http.StatusOK
	case o.Reason == dupsweep.ReasonEmptyPath:
		return http.StatusBadRequest
	case o.Reason == dupsweep.ReasonVanished:
		return http.StatusNotFound
	case o.Kind == dupsweep.KindPermission:
		return http.StatusForbidden
	case o.Result == dupsweep.ResultFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func (s *apiServer) handleDeleteFile(ctx *gin.Context) {
	var req deleteFileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request: " + err.Error()})
		return
	}

	outcome := s.engineFor(req.DryRun).DeleteOne(ctx.Request.Context(), req.FilePath)

	message := outcome.Reason
	switch {
	case outcome.Deleted():
		message = "Deleted " + outcome.Path
	case outcome.Reason == dupsweep.ReasonDryRun:
		message = "Would delete " + outcome.Path
	}

	var freed int64
	if outcome.Deleted() {
		freed = outcome.Bytes
	}

	ctx.JSON(outcomeStatus(outcome), gin.H{
		"success":     outcome.Deleted() || outcome.Reason == dupsweep.ReasonDryRun,
		"message":     message,
		"space_freed": freed,
		"outcome":     outcome,
	})
}

func (s *apiServer) handleDeleteDuplicates(ctx *gin.Context) {
	var req deleteManyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request: " + err.Error()})
		return
	}
	if len(req.FilePaths) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no files specified"})
		return
	}

	report := s.engineFor(req.DryRun).DeleteMany(ctx.Request.Context(), req.FilePaths)

	deleted := []string{}
	failures := []deleteError{}
	for _, o := range report.Outcomes {
		switch {
		case o.Deleted():
			deleted = append(deleted, o.Path)
		case o.Reason != dupsweep.ReasonDryRun:
			failures = append(failures, deleteError{Path: o.Path, Error: o.Reason})
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":           report.OK(),
		"partial":           report.Partial(),
		"deleted_count":     report.Deleted,
		"deleted_files":     deleted,
		"total_space_freed": report.BytesFreed,
		"errors":            failures,
		"report":            report,
	})
}

// allowedOrigins lists the browser origins that may call the API served on
// listen
func allowedOrigins(listen string) []string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	origins := []string{"http://localhost:" + port, "http://127.0.0.1:" + port}
	if host != "" && host != "localhost" && host != "127.0.0.1" && host != "0.0.0.0" && host != "::" {
		origins = append(origins, "http://"+net.JoinHostPort(host, port))
	}
	return origins
}

// serve runs the API until ctx is cancelled, then shuts down gracefully
func serve(ctx context.Context, listen string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("listen", listen).Msg("API listening")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("Shutting down API")
	return srv.Shutdown(shutdownCtx)
}

func newServeCommand(a *app) *cobra.Command {
	var (
		listen string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and delete API over HTTP",
		Long: `Serve a JSON API for scanning, suggestions and deletion.

Endpoints:
  GET  /api/status
  POST /api/scan               {"directory": "..."}
  POST /api/suggestions        {"directory": "..."}
  POST /api/validate-path      {"path": "..."}
  POST /api/delete-file        {"file_path": "..."}
  POST /api/delete-duplicates  {"file_paths": ["...", "..."]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			if !cmd.Flags().Changed("listen") {
				listen = a.cfg.GetServerConfig().Listen
			}
			engine := a.engine
			if cmd.Flags().Changed("dry-run") {
				engine = engine.WithDryRun(dryRun)
			}

			if a.log.GetLevel() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			router := newRouter(engine, a.log, allowedOrigins(listen))
			return serve(ctx, listen, router, a.log)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "never delete, only report what would be deleted")
	return cmd
}
