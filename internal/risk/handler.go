package risk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/ingest"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/common"
)

// Handler handles HTTP requests for the intelligence pipeline
type Handler struct {
	service *Service
}

// NewHandler creates a new pipeline handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the pipeline endpoints
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/disputes/batch", h.IngestBatch)
		api.GET("/disputes", h.QueryDisputes)
		api.GET("/aggregates", h.Aggregates)
		api.GET("/reports/providers", h.ProviderReports)
		api.GET("/reports/providers/:npi", h.ProviderReport)
	}
}

// IngestBatch ingests one raw quarterly batch
// POST /api/v1/disputes/batch
func (h *Handler) IngestBatch(c *gin.Context) {
	var req struct {
		Records []ingest.RawRecord `json:"records" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.service.IngestBatch(c.Request.Context(), req.Records, nil)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to ingest batch")
		return
	}

	common.SuccessResponse(c, report)
}

// QueryDisputes lists disputes matching the query filter
// GET /api/v1/disputes
func (h *Handler) QueryDisputes(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := h.service.QueryDisputes(c.Request.Context(), filter)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to query disputes")
		return
	}

	common.SuccessResponse(c, gin.H{"disputes": ds, "count": len(ds)})
}

// Aggregates returns rollups along a grouping dimension
// GET /api/v1/aggregates?group_by=provider
func (h *Handler) Aggregates(c *gin.Context) {
	groupBy := aggregate.GroupBy(c.DefaultQuery("group_by", string(aggregate.GroupByProvider)))
	if !groupBy.Valid() {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid group_by dimension")
		return
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	aggs, err := h.service.Aggregates(c.Request.Context(), filter, groupBy)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to compute aggregates")
		return
	}

	common.SuccessResponse(c, aggs)
}

// ProviderReports lists scored provider reports, highest risk first
// GET /api/v1/reports/providers?min_score=65
func (h *Handler) ProviderReports(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	minScore := 0
	if raw := c.Query("min_score"); raw != "" {
		minScore, err = strconv.Atoi(raw)
		if err != nil || minScore < 0 || minScore > 100 {
			common.ErrorResponse(c, http.StatusBadRequest, "min_score must be an integer in [0,100]")
			return
		}
	}

	reports, err := h.service.ProviderReports(c.Request.Context(), filter, minScore)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to compute provider reports")
		return
	}

	common.SuccessResponse(c, gin.H{"reports": reports, "count": len(reports)})
}

// ProviderReport returns the report for one provider
// GET /api/v1/reports/providers/:npi
func (h *Handler) ProviderReport(c *gin.Context) {
	npi := c.Param("npi")

	report, err := h.service.ProviderReport(c.Request.Context(), npi)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "provider not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to compute provider report")
		return
	}

	common.SuccessResponse(c, report)
}

func filterFromQuery(c *gin.Context) (disputes.Filter, error) {
	filter := disputes.Filter{
		ProviderNPI: c.Query("provider_npi"),
		PayerName:   c.Query("payer"),
		Specialty:   c.Query("specialty"),
		State:       c.Query("state"),
	}

	if raw := c.Query("from_quarter"); raw != "" {
		q, err := disputes.ParseQuarter(raw)
		if err != nil {
			return disputes.Filter{}, errors.New("invalid from_quarter")
		}
		filter.FromQuarter = &q
	}
	if raw := c.Query("to_quarter"); raw != "" {
		q, err := disputes.ParseQuarter(raw)
		if err != nil {
			return disputes.Filter{}, errors.New("invalid to_quarter")
		}
		filter.ToQuarter = &q
	}

	return filter, nil
}
