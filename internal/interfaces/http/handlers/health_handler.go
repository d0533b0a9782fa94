package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/pkg/types/common"
)

// checkTimeout bounds each readiness probe.
const checkTimeout = 2 * time.Second

// CheckFunc probes one backing component.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness.  Liveness is unconditional;
// readiness runs the registered component checks.
type HealthHandler struct {
	checks map[string]CheckFunc
}

// NewHealthHandler builds the handler with a named check per component.
func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Register mounts the probes at the engine root, outside the API group.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
}

func (h *HealthHandler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": common.HealthUp})
}

func (h *HealthHandler) readyz(c *gin.Context) {
	components := make([]common.ComponentHealth, 0, len(h.checks))
	status := common.HealthUp

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		start := time.Now()
		err := check(ctx)
		cancel()

		ch := common.ComponentHealth{
			Name:    name,
			Status:  common.HealthUp,
			Latency: time.Since(start),
		}
		if err != nil {
			ch.Status = common.HealthDown
			ch.Message = err.Error()
			status = common.HealthDown
		}
		components = append(components, ch)
	}

	code := http.StatusOK
	if status == common.HealthDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}
