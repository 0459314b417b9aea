package raffle

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

// RouterDeps wires the HTTP layer to its collaborators
type RouterDeps struct {
	Store   ConfigStore
	Engine  *DrawEngine         // Optional server-side draw session
	Breaker *BreakerConfigStore // Optional, reported on /healthz
	Server  *ServerConfig
	Logger  Logger

	// ApplyOnSave reconfigures Engine after a successful POST /api/config.
	// Leave it off when the engine already follows the store through a change subscription.
	ApplyOnSave bool
}

type handler struct {
	RouterDeps
}

// NewRouter builds the gin engine serving the config API, the draw session API,
// health and static assets
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Server == nil {
		deps.Server = DefaultServerConfig()
	}
	if deps.Logger == nil {
		deps.Logger = &DefaultLogger{}
	}
	h := &handler{RouterDeps: deps}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.Use(corsMiddleware())
	{
		api.GET("/config", h.getConfig)
		api.POST("/config", h.postConfig)
		api.OPTIONS("/config", h.preflight)

		if deps.Engine != nil {
			draw := api.Group("/draw")
			draw.GET("", h.drawState)
			draw.POST("/start", h.drawStart)
			draw.POST("/stop", h.drawStop)
			draw.POST("/reset", h.drawReset)
			draw.POST("/reload", h.drawReload)
		}
	}

	router.NoRoute(h.static)
	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func requestLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// statusForError maps store errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrCircuitBreakerOpen):
		return http.StatusServiceUnavailable
	case IsConfigFormatError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GET /api/config
func (h *handler) getConfig(c *gin.Context) {
	cfg, err := h.Store.Load(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// POST /api/config
func (h *handler) postConfig(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxConfigPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
		return
	}

	cfg, err := ParseRaffleConfig(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.Save(c.Request.Context(), cfg); err != nil {
		h.fail(c, err)
		return
	}

	if h.ApplyOnSave && h.Engine != nil {
		h.Engine.ApplyConfig(cfg)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Configuration saved"})
}

// OPTIONS /api/config
func (h *handler) preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Status(http.StatusNoContent)
}

func (h *handler) drawState(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

func (h *handler) drawStart(c *gin.Context) {
	h.writeOutcome(c, h.Engine.StartDraw())
}

func (h *handler) drawStop(c *gin.Context) {
	h.writeOutcome(c, h.Engine.StopDraw())
}

func (h *handler) drawReset(c *gin.Context) {
	h.Engine.Reset()
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

func (h *handler) drawReload(c *gin.Context) {
	if err := h.Engine.LoadFrom(c.Request.Context(), h.Store); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Engine.Snapshot())
}

func (h *handler) writeOutcome(c *gin.Context, outcome Outcome) {
	c.JSON(http.StatusOK, gin.H{
		"outcome": outcome,
		"message": outcome.Message(),
		"state":   h.Engine.Snapshot(),
	})
}

// GET /healthz
func (h *handler) health(c *gin.Context) {
	result := gin.H{"status": "ok", "time": time.Now().Unix()}

	if h.Breaker != nil {
		check := NewCircuitBreakerHealthCheck(h.Breaker).Check()
		result["circuit_breaker"] = check
		if healthy, _ := check["healthy"].(bool); !healthy {
			result["status"] = "degraded"
		}
	}
	if h.Engine != nil {
		metrics := h.Engine.PerformanceMetrics()
		result["metrics"] = metrics
	}

	c.JSON(http.StatusOK, result)
}

// static serves files from the configured directory; the deployment manifest is never served
func (h *handler) static(c *gin.Context) {
	rel := path.Clean("/" + c.Request.URL.Path)[1:]
	if "/"+rel == path.Clean("/"+h.Server.ManifestPath) {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	if rel == "" {
		rel = "index.html"
	}

	full := filepath.Join(h.Server.StaticDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.File(full)
}
