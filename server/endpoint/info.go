package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mywebapi/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Service     string       `json:"service"`
	Environment string       `json:"environment"`
	Build       version.Info `json:"build"`
	Release     bool         `json:"release"`
	Uptime      string       `json:"uptime"`
	Timestamp   string       `json:"timestamp"`
}

// Info reports the service identity, build metadata and uptime.
func Info(serviceName, environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.Get()
		c.JSON(http.StatusOK, InfoResponse{
			Service:     serviceName,
			Environment: environment,
			Build:       v,
			Release:     v.IsRelease(),
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Version reports build metadata only.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	}
}
