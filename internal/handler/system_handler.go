package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

// SystemHandler reports service health and exposes Prometheus metrics.
type SystemHandler struct {
	storePing PingFunc
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. rdb may be nil.
func NewSystemHandler(storePing PingFunc, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		storePing: storePing,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Checks     map[string]string `json:"checks"`
	Goroutines int               `json:"goroutines"`
	HeapAlloc  uint64            `json:"heap_alloc"`
	NumGC      uint32            `json:"num_gc"`
	GoVersion  string            `json:"go_version"`

	QueueAttempts  int64 `json:"queue_attempts"`
	QueueIntegrity int64 `json:"queue_integrity"`
}

// Health godoc
// GET /health
// Returns 200 when every dependency answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(h.startTime)),
		Checks:     make(map[string]string),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report.HeapAlloc = ms.HeapAlloc
	report.NumGC = ms.NumGC

	h.check(ctx, &report, "store", h.storePing)

	if h.rdb != nil {
		pipe := h.rdb.Pipeline()
		ping := pipe.Ping(ctx)
		attempts := pipe.LLen(ctx, config.WorkerKey.PersistAttemptsQueue)
		integrity := pipe.LLen(ctx, config.WorkerKey.PersistIntegrityQueue)
		_, _ = pipe.Exec(ctx)

		h.check(ctx, &report, "redis", func(context.Context) error { return ping.Err() })
		report.QueueAttempts, _ = attempts.Result()
		report.QueueIntegrity, _ = integrity.Result()
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}

func (h *SystemHandler) check(ctx context.Context, report *healthReport, name string, ping PingFunc) {
	if ping == nil {
		return
	}
	if err := ping(ctx); err != nil {
		h.log.Warn().Err(err).Str("check", name).Msg("Health check failed")
		report.Checks[name] = "down"
		report.Status = "degraded"
		return
	}
	report.Checks[name] = "up"
}

// Metrics godoc
// GET /metrics
func (h *SystemHandler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
