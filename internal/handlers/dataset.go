package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "parkinsight/internal/errors"
	"parkinsight/internal/services"
)

type DatasetHandler struct {
	datasetService *services.DatasetService
}

func NewDatasetHandler(datasetService *services.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasetService: datasetService}
}

// ListDatasets returns the names of every known dataset source.
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": services.KnownSources()})
}

// GetDataset returns the sanitized display table and summary metrics for one
// source. Query parameters narrow the fetch; with_coordinates toggles the
// coordinate row filter.
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	source := c.Param("name")

	params, opts, err := parseFetchQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	table, summary, cacheHit, err := h.datasetService.Table(c.Request.Context(), source, params, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if appErr, ok := err.(*apperrors.AppError); ok {
			status = appErr.HTTPStatus
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Set("cache_hit", cacheHit)

	c.JSON(http.StatusOK, gin.H{
		"source":    source,
		"table":     table,
		"summary":   summary,
		"cache_hit": cacheHit,
	})
}

// RefreshDataset evicts the cached records for a source and fetches fresh ones.
func (h *DatasetHandler) RefreshDataset(c *gin.Context) {
	source := c.Param("name")

	params, _, err := parseFetchQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.datasetService.Invalidate(c.Request.Context(), source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	records, _, err := h.datasetService.Records(c.Request.Context(), source, params)
	if err != nil {
		status := http.StatusInternalServerError
		if appErr, ok := err.(*apperrors.AppError); ok {
			status = appErr.HTTPStatus
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source":  source,
		"records": len(records),
	})
}

// HealthCheck reports service and cache backend status. A failing cache
// backend degrades the whole service to 503.
func (h *DatasetHandler) HealthCheck(c *gin.Context) {
	if err := h.datasetService.Ping(c.Request.Context()); err != nil {
		status := http.StatusServiceUnavailable
		if appErr, ok := err.(*apperrors.AppError); ok {
			status = appErr.HTTPStatus
		}
		c.JSON(status, gin.H{
			"status": "degraded",
			"cache":  "unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cache":  "ok",
	})
}

func parseFetchQuery(c *gin.Context) (services.FetchParams, services.TableOptions, error) {
	params := services.FetchParams{
		County:     c.Query("county"),
		State:      c.Query("state"),
		CountyCode: c.Query("county_code"),
		Query:      c.Query("q"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return params, services.TableOptions{}, apperrors.NewAppError(
				"invalid limit query parameter: "+raw,
				"limit must be a non-negative integer",
				apperrors.ErrCodeInvalidParameters,
				http.StatusBadRequest,
				err,
			)
		}
		params.Limit = limit
	}

	var opts services.TableOptions
	if raw := c.Query("with_coordinates"); raw != "" {
		withCoords, err := strconv.ParseBool(raw)
		if err != nil {
			return params, opts, apperrors.NewAppError(
				"invalid with_coordinates query parameter: "+raw,
				"with_coordinates must be a boolean",
				apperrors.ErrCodeInvalidParameters,
				http.StatusBadRequest,
				err,
			)
		}
		opts.WithCoordinates = &withCoords
	}
	return params, opts, nil
}
