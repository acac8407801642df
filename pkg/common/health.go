package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the /healthz payload. Dependencies lists the backing
// services the board needs to take bookings and push live updates.
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck returns a liveness handler with no dependency checks
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: serviceName,
			Version: version,
		})
	}
}

// HealthCheckWithDeps returns a readiness handler that runs each named
// dependency check. Any failure degrades the response to 503 so a load
// balancer stops routing bookings at a board that cannot store them.
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		deps := make(map[string]string, len(checks))

		for name, check := range checks {
			if err := check(); err != nil {
				deps[name] = "unavailable: " + err.Error()
				status = "degraded"
			} else {
				deps[name] = "ok"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, HealthResponse{
			Status:       status,
			Service:      serviceName,
			Version:      version,
			Dependencies: deps,
		})
	}
}
