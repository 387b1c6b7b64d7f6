package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-token-service/internal/observability"
	"github.com/spec-kit/access-token-service/internal/persistence"
	apperrors "github.com/spec-kit/access-token-service/pkg/util"
)

const readinessTimeout = 2 * time.Second

type dependencyProbe struct {
	name    string
	check   func(context.Context) error
	enabled func() bool // nil for dependencies that are always required
}

// HealthHandler serves liveness, readiness and the in-memory counters.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []dependencyProbe
	metrics     *observability.Metrics
}

// NewHealthHandler builds probes for Postgres and Redis. Postgres is skipped
// when no pool is configured and users live in memory.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		metrics:     metrics,
		probes: []dependencyProbe{
			{
				name:    "postgres",
				enabled: func() bool { return postgres.PoolHandle() != nil },
				check:   postgres.Ping,
			},
			{name: "redis", check: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready probes every dependency and answers 503 when any enabled one fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	status := make(map[string]any, len(h.probes))
	ready := true
	for _, p := range h.probes {
		if p.enabled != nil && !p.enabled() {
			status[p.name] = "disabled"
			continue
		}
		if err := p.check(ctx); err != nil {
			status[p.name] = err.Error()
			ready = false
			continue
		}
		status[p.name] = "ok"
	}

	if !ready {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", http.StatusServiceUnavailable, status)
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": status,
	})
}

// Metrics returns request and error counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
