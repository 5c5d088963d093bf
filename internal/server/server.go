// Package server is the upload form of serve mode: two spreadsheet uploads,
// an API key and the six benchmark/cost values in, the augmented workbook
// out.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/backmassage/campaigndelta/internal/classify"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/export"
	"github.com/backmassage/campaigndelta/internal/loader"
	"github.com/backmassage/campaigndelta/internal/logging"
	"github.com/backmassage/campaigndelta/internal/pipeline"
	"github.com/backmassage/campaigndelta/internal/sheet"
)

// maxUploadBytes bounds the in-memory part of a multipart upload.
const maxUploadBytes = 32 << 20

// LookuperFactory builds a lookup client for one request's API key.
type LookuperFactory func(ctx context.Context, apiKey string) (enrich.Lookuper, error)

// pricingFields maps the form's six number inputs onto the pricing tables.
var pricingFields = []struct {
	name      string
	category  config.Category
	benchmark bool
}{
	{"facebook_benchmark", config.CategoryFacebook, true},
	{"youtube_bumper_benchmark", config.CategoryYouTubeBumper, true},
	{"youtube_skippable_reach_benchmark", config.CategoryYouTubeSkippableReach, true},
	{"facebook_cost", config.CategoryFacebook, false},
	{"youtube_bumper_cost", config.CategoryYouTubeBumper, false},
	{"youtube_skippable_view_cost", config.CategoryYouTubeSkippableView, false},
}

// Server holds the rules shared by every request.
type Server struct {
	cfg         *config.Config
	model       *classify.CostModel
	newLookuper LookuperFactory
	log         *logging.Logger
}

// New validates the rules in cfg and compiles the cost formula once.
func New(cfg *config.Config, factory LookuperFactory, log *logging.Logger) (*Server, error) {
	if err := cfg.ValidateRules(); err != nil {
		return nil, err
	}
	model, err := classify.CompileCostModel(cfg.CostFormula)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, model: model, newLookuper: factory, log: log}, nil
}

// Router returns a gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = maxUploadBytes
	s.SetupRoutes(r)
	return r
}

// SetupRoutes registers the form, the processing endpoint and the health check.
func (s *Server) SetupRoutes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", s.form)
	r.POST("/process", s.process)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Success("Listening on http://%s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) form(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(formHTML))
}

func (s *Server) process(c *gin.Context) {
	apiKey := strings.TrimSpace(c.PostForm("api_key"))
	if apiKey == "" {
		apiKey = s.cfg.APIKey
	}
	if apiKey == "" {
		badRequest(c, errors.New("api_key is required"))
		return
	}

	pricing, err := s.pricing(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	format := config.FormatXLSX
	if f := c.PostForm("format"); f != "" {
		format, err = config.ResolveOutputFormat(config.OutputFormat(strings.ToLower(f)), "")
		if err != nil {
			badRequest(c, err)
			return
		}
	}

	opts := sheet.Options{Sheet: s.cfg.Sheet, HeaderOffset: s.cfg.HeaderOffset}
	oldTbl, err := readUpload(c, "old_file", opts)
	if err != nil {
		badRequest(c, err)
		return
	}
	newTbl, err := readUpload(c, "new_file", opts)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	l, err := s.newLookuper(ctx, apiKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	res, err := pipeline.Process(ctx, pipeline.Job{
		Old:        oldTbl,
		New:        newTbl,
		LinkMarker: s.cfg.LinkMarker,
		Thresholds: s.cfg.Thresholds,
		Pricing:    pricing,
		Cost:       s.model,
	}, l, s.log)
	if err != nil {
		var mce *loader.MissingColumnError
		var dup *loader.DuplicateLinkError
		if errors.As(err, &mce) || errors.As(err, &dup) {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stats := pipeline.Summarize(res)
	stats.RunID = uuid.NewString()
	stats.StartedAt = started
	stats.FinishedAt = time.Now()
	record := stats.Record(s.cfg)
	record.OldFile = uploadName(c, "old_file")
	record.NewFile = uploadName(c, "new_file")

	var buf bytes.Buffer
	if err := export.Write(&buf, format, res.Document(record)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("Processed %d rows (%d matched, %d diagnostics) run %s",
		stats.Rows, stats.Matched, stats.DiagnosticCount(), stats.RunID)

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, outputName(format)))
	c.Header("X-Run-Id", stats.RunID)
	c.Header("X-Diagnostics", strconv.Itoa(stats.DiagnosticCount()))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// pricing overlays the submitted form values on the configured tables.
// Blank fields keep the configured value.
func (s *Server) pricing(c *gin.Context) (config.Pricing, error) {
	p := s.cfg.Pricing.Clone()
	for _, f := range pricingFields {
		raw := strings.TrimSpace(c.PostForm(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return config.Pricing{}, fmt.Errorf("%s: %q is not a number", f.name, raw)
		}
		if f.benchmark {
			p.Benchmarks[f.category] = v
		} else {
			p.Costs[f.category] = v
		}
	}
	return p, nil
}

func readUpload(c *gin.Context, field string, opts sheet.Options) (*sheet.Table, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	format, err := sheet.FormatFromPath(fh.Filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	tbl, err := sheet.Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return tbl, nil
}

func uploadName(c *gin.Context, field string) string {
	if fh, err := c.FormFile(field); err == nil {
		return fh.Filename
	}
	return ""
}

func outputName(format config.OutputFormat) string {
	switch format {
	case config.FormatCSV:
		return "Output.csv"
	case config.FormatSQLite:
		return "Output.sqlite"
	}
	return "Output.xlsx"
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// requestLogger logs each request through the application logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
