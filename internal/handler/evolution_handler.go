package handler

import (
	"bytes"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jengzang/cellwatch-backend-go/internal/models"
	"github.com/jengzang/cellwatch-backend-go/internal/service"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// EvolutionHandler serves the selected entity's attribute history, as JSON
// and as a rendered chart page
type EvolutionHandler struct {
	controller *service.LayerController
}

// NewEvolutionHandler creates a new evolution handler
func NewEvolutionHandler(controller *service.LayerController) *EvolutionHandler {
	return &EvolutionHandler{controller: controller}
}

// GetSeries handles GET /api/v1/evolution
func (h *EvolutionHandler) GetSeries(c *gin.Context) {
	uid, points := h.controller.EvolutionSeries()
	if uid == "" {
		response.NotFound(c, "No entity selected")
		return
	}
	response.Success(c, gin.H{
		"uid":     uid,
		"points":  points,
		"summary": service.Summarize(points),
	})
}

// GetChart handles GET /api/v1/evolution/chart. It renders a line chart of
// every numeric attribute over time as a standalone HTML page.
func (h *EvolutionHandler) GetChart(c *gin.Context) {
	uid, points := h.controller.EvolutionSeries()
	if uid == "" {
		response.NotFound(c, "No entity selected")
		return
	}
	if len(points) == 0 {
		response.NotFound(c, "Selected entity has no history at this threshold")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Attribute evolution",
			Subtitle: "uid " + uid,
		}),
	)

	xLabels := make([]string, len(points))
	for i, p := range points {
		if p.TimestampKey != "" {
			xLabels[i] = p.TimestampKey
		} else {
			xLabels[i] = p.FileName
		}
	}
	line.SetXAxis(xLabels)

	for _, attr := range numericAttributes(points) {
		data := make([]opts.LineData, len(points))
		for i, p := range points {
			if v, ok := models.Numeric(p.Attributes[attr]); ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(attr, data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		response.InternalError(c, "Failed to render chart")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// numericAttributes lists every attribute that is numeric in at least one
// point, sorted for a stable legend
func numericAttributes(points []models.EvolutionPoint) []string {
	seen := make(map[string]bool)
	for _, p := range points {
		for k, v := range p.Attributes {
			if k == "uid" {
				continue
			}
			if _, ok := models.Numeric(v); ok {
				seen[k] = true
			}
		}
	}
	attrs := make([]string, 0, len(seen))
	for k := range seen {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)
	return attrs
}
