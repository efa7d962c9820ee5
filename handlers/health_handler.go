package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raduhhr/contact-api/types"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness, including reachability of the
// rate-limit counter store.
type HealthHandler struct {
	redis     *redis.Client
	version   string
	startTime time.Time
}

func NewHealthHandler(redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		redis:     redisClient,
		version:   version,
		startTime: time.Now(),
	}
}

// Liveness godoc
// @Summary      Health check
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := types.HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Redis:         "ok",
	}

	status := http.StatusOK
	if h.redis == nil {
		resp.Redis = "not configured"
	} else if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		// The form still works without the counter (rate limiting fails
		// open), but report degraded so operators notice.
		resp.Status = "degraded"
		resp.Redis = "unreachable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
