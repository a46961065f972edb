package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/tgviewer/pkg/httputil"
)

// DatabasePinger checks database connectivity
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// TelegramChecker reports whether account linking is configured
type TelegramChecker interface {
	Configured() bool
}

// PendingCounter reports the number of in-flight linking handshakes
type PendingCounter interface {
	Len() int
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 5 * time.Second

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status       HealthStatus      `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	PendingLinks int               `json:"pending_links"`
	Components   []ComponentHealth `json:"components"`
}

// RootResponse describes the running service
type RootResponse struct {
	Message            string `json:"message"`
	Version            string `json:"version"`
	Status             string `json:"status"`
	TelegramConfigured bool   `json:"telegram_configured"`
}

// Handler serves service and health endpoints
type Handler struct {
	name     string
	version  string
	db       DatabasePinger
	telegram TelegramChecker
	pending  PendingCounter
	logger   zerolog.Logger
}

// NewHandler creates a new health handler
func NewHandler(name, version string, db DatabasePinger, telegram TelegramChecker, pending PendingCounter, logger zerolog.Logger) *Handler {
	return &Handler{
		name:     name,
		version:  version,
		db:       db,
		telegram: telegram,
		pending:  pending,
		logger:   logger.With().Str("handler", "health").Logger(),
	}
}

// Root handles GET /
func (h *Handler) Root(ctx *fasthttp.RequestCtx) {
	httputil.WriteResponse(ctx, RootResponse{
		Message:            h.name,
		Version:            h.version,
		Status:             "running",
		TelegramConfigured: h.telegram.Configured(),
	})
}

// Health handles GET /health; only a failing database makes the service unhealthy
func (h *Handler) Health(ctx *fasthttp.RequestCtx) {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	components := h.checkComponents(checkCtx)
	status := determineOverallStatus(components)

	response := HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		PendingLinks: h.pending.Len(),
		Components:   components,
	}

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	}
	logEvent.
		Str("status", string(status)).
		Interface("components", components).
		Msg("Health check completed")

	httputil.WriteHealthResponse(ctx, response, status != HealthStatusUnhealthy)
}

func (h *Handler) checkComponents(ctx context.Context) []ComponentHealth {
	components := make([]ComponentHealth, 0, 2)

	database := ComponentHealth{Name: "database", Healthy: true, Critical: true}
	if err := h.db.PingContext(ctx); err != nil {
		database.Healthy = false
		database.Message = "Database is not reachable"
		h.logger.Error().Err(err).Msg("database ping failed")
	}
	components = append(components, database)

	telegram := ComponentHealth{Name: "telegram", Healthy: h.telegram.Configured()}
	if !telegram.Healthy {
		telegram.Message = "Telegram API credentials not configured"
	}
	components = append(components, telegram)

	return components
}

func determineOverallStatus(components []ComponentHealth) HealthStatus {
	status := HealthStatusHealthy
	for _, c := range components {
		if c.Healthy {
			continue
		}
		if c.Critical {
			return HealthStatusUnhealthy
		}
		status = HealthStatusDegraded
	}
	return status
}
