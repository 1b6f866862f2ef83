package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/query"
	"github.com/feral-file/castindex/internal/store"
)

const (
	DEFAULT_RUNS_LIMIT = 10
	MAX_RUNS_LIMIT     = 100
)

// Handler defines the REST API handlers
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// GetStats returns row counts, watermarks and the latest pipeline runs
	// GET /v1/stats?runs=<limit>
	GetStats(c *gin.Context)

	// RunQuery runs a read-only query. With format=csv the rows are returned as a CSV attachment.
	// POST /v1/query?format=<json|csv>
	RunQuery(c *gin.Context)
}

type handler struct {
	store    store.Store
	executor *query.Executor
	clock    adapter.Clock
}

// NewHandler creates a REST handler
func NewHandler(st store.Store, executor *query.Executor, clock adapter.Clock) Handler {
	return &handler{store: st, executor: executor, clock: clock}
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) GetStats(c *gin.Context) {
	limit := DEFAULT_RUNS_LIMIT
	if raw := c.Query("runs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > MAX_RUNS_LIMIT {
			respondValidationError(c, fmt.Sprintf("runs must be an integer between 0 and %d", MAX_RUNS_LIMIT))
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	counts, err := h.store.CountRows(ctx)
	if err != nil {
		respondDatabaseError(c, err, "Failed to count rows")
		return
	}
	watermarks, err := h.store.GetWatermarks(ctx)
	if err != nil {
		respondDatabaseError(c, err, "Failed to get watermarks")
		return
	}
	runs := []FetchRunResponse{}
	if limit > 0 {
		rows, err := h.store.GetRecentFetchRuns(ctx, limit)
		if err != nil {
			respondDatabaseError(c, err, "Failed to get fetch runs")
			return
		}
		for _, r := range rows {
			runs = append(runs, fetchRunFromSchema(r))
		}
	}

	c.JSON(http.StatusOK, StatsResponse{
		Tables:     counts,
		Watermarks: watermarks,
		Runs:       runs,
	})
}

func (h *handler) RunQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	mode := query.Mode(req.Mode)
	if !mode.IsValid() {
		respondValidationError(c, fmt.Sprintf("mode must be one of %q, %q or %q", query.ModeSQL, query.ModeNL, query.ModeAdvanced))
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		respondValidationError(c, "format must be json or csv")
		return
	}

	ctx := c.Request.Context()
	result, err := h.executor.Run(ctx, query.Request{Mode: mode, Input: req.Input})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReadOnlyQuery):
			respondUnprocessable(c, "Query rejected", err.Error())
		case errors.Is(err, domain.ErrMissingCredential):
			respondServiceUnavailable(c, "Natural language queries are not configured", err.Error())
		default:
			logger.WarnCtx(ctx, "Query failed", zap.Error(err), zap.String("mode", req.Mode))
			respondBadRequest(c, "Query failed", err.Error())
		}
		return
	}

	if format == "csv" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", query.CSVFileName(h.clock.Now())))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := query.WriteCSV(c.Writer, result); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to write csv: %w", err))
		}
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		SQL:      result.SQL,
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
		Answer:   result.Answer,
	})
}
