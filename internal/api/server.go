package api

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/david/opportunity-finder/internal/db"
	"github.com/david/opportunity-finder/internal/pipeline"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the read-only reporting facade over the scored audit trail, plus
// an admin endpoint to trigger a processing run over staged candidates.
type Server struct {
	Store  *db.Store
	Echo   *echo.Echo
	DB     *pgxpool.Pool
	Config *pipeline.Config
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
)

func NewServer(pool *pgxpool.Pool, cfg *pipeline.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-Admin-Secret"},
	}))

	s := &Server{
		DB:     pool,
		Store:  db.NewStore(pool),
		Echo:   e,
		Config: cfg,
	}

	e.GET("/health", s.handleHealth)
	e.GET("/api/opportunities", s.handleList)
	e.GET("/api/opportunities/:source_id", s.handleGet)
	e.GET("/api/report", s.handleReport)
	e.POST("/api/admin/process", s.handleProcess, s.requireAdmin)

	return s
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.DB.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	result, err := s.Store.List(c.Request().Context(), db.ListParams{
		Status:   c.QueryParam("status"),
		Tier:     c.QueryParam("tier"),
		Category: c.QueryParam("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		log.Printf("List failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGet(c echo.Context) error {
	opp, err := s.Store.GetBySourceID(c.Request().Context(), c.Param("source_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleReport(c echo.Context) error {
	summary, err := s.Store.ComplianceReport(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		log.Printf("Compliance report failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "report failed"})
	}
	return c.JSON(http.StatusOK, summary)
}

// handleProcess drains staged candidates through the pipeline. Kept
// synchronous: batches are bounded and the caller is automation, not a UI.
func (s *Server) handleProcess(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	candidates, err := s.Store.PendingCandidates(ctx, limit)
	if err != nil {
		log.Printf("Pending candidates failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "staging read failed"})
	}

	runID, err := s.Store.CreateRun(ctx)
	if err != nil {
		log.Printf("[Warn] Failed to create process run: %v", err)
	}

	start := time.Now()
	p := pipeline.NewPipeline(s.Store, s.Config)
	results, stats, err := p.ProcessBatch(ctx, candidates)
	if err != nil {
		if runID != "" {
			_ = s.Store.FinishRun(ctx, runID, "failed", stats, time.Since(start))
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	processed := make([]string, 0, len(results))
	for _, rec := range results {
		processed = append(processed, rec.SourceID)
	}
	if err := s.Store.MarkProcessed(ctx, processed); err != nil {
		log.Printf("[Warn] Failed to mark candidates processed: %v", err)
	}

	if runID != "" {
		if err := s.Store.FinishRun(ctx, runID, "completed", stats, time.Since(start)); err != nil {
			log.Printf("[Warn] Failed to finish process run %s: %v", runID, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"stats":   stats,
		"summary": pipeline.BuildReport(results),
	})
}

// requireAdmin checks the X-Admin-Secret header. If ADMIN_SECRET is unset a
// random secret is generated once and logged, so the endpoint is never open.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := adminSecret()
		if c.Request().Header.Get("X-Admin-Secret") != secret {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}

func adminSecret() string {
	adminSecretOnce.Do(func() {
		adminSecretRuntime = os.Getenv("ADMIN_SECRET")
		if adminSecretRuntime != "" {
			return
		}
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("Failed to generate admin secret: %v", err)
		}
		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Printf("ADMIN_SECRET not set; generated runtime secret: %s", adminSecretRuntime)
	})
	return adminSecretRuntime
}
