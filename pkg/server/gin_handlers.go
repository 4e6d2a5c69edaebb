package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/sefcom/clusterutils/pkg/utilization"
)

// ReportProvider defines the interface the HTTP handlers read reports from
type ReportProvider interface {
	Report() (*utilization.Report, error)
	Ready() bool
}

// GinHandler handles report requests using Gin
type GinHandler struct {
	provider ReportProvider
}

// NewGinHandler creates a new Gin report handler
func NewGinHandler(provider ReportProvider) *GinHandler {
	return &GinHandler{
		provider: provider,
	}
}

// HealthHandler always answers OK while the process is up
func (h *GinHandler) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ReadyHandler answers OK once the first report is available
func (h *GinHandler) ReadyHandler(c *gin.Context) {
	if !h.provider.Ready() {
		c.String(http.StatusServiceUnavailable, "not ready")
		return
	}
	c.String(http.StatusOK, "OK")
}

// ReportHandler returns the latest report, optionally re-sorted with ?sort=
func (h *GinHandler) ReportHandler(c *gin.Context) {
	sortKey, err := utilization.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"message": err.Error(),
				"type":    "invalid_sort_key",
			},
		})
		return
	}

	report, err := h.provider.Report()
	if err != nil {
		klog.V(2).Infof("Report requested before it was available: %v", err)
		c.Header("Retry-After", "10")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"message": err.Error(),
				"type":    "report_unavailable",
			},
		})
		return
	}

	if sortKey != utilization.SortNone {
		report = report.Resorted(sortKey)
	}
	c.JSON(http.StatusOK, report)
}
