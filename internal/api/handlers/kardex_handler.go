package handlers

import (
	"errors"
	"net/http"

	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/internal/service"
	"kardex-ingest/pkg/validator"

	"github.com/gin-gonic/gin"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// KardexHandler handles kardex ingestion and transcript read requests
type KardexHandler struct {
	ingestionService   *service.IngestionService
	transcriptService  *service.TranscriptQueryService
	idempotencyService *service.IdempotencyService
}

// NewKardexHandler creates a new kardex handler. idempotencyService may be
// nil when no redis cache is configured.
func NewKardexHandler(
	ingestionService *service.IngestionService,
	transcriptService *service.TranscriptQueryService,
	idempotencyService *service.IdempotencyService,
) *KardexHandler {
	return &KardexHandler{
		ingestionService:   ingestionService,
		transcriptService:  transcriptService,
		idempotencyService: idempotencyService,
	}
}

// Ingest handles POST /api/v1/kardex
func (h *KardexHandler) Ingest(c *gin.Context) {
	var payload domain.Payload

	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid request format",
			Errors:  err.Error(),
		})
		return
	}

	if err := validator.ValidateStruct(&payload); err != nil {
		validationErrors := validator.FormatValidationError(err)
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validationErrors,
		})
		return
	}

	idempotencyKey := c.GetString("idempotency_key")
	if h.idempotencyService != nil {
		cached, isDuplicate, err := h.idempotencyService.CheckDuplicate(c.Request.Context(), idempotencyKey, &payload)
		if errors.Is(err, service.ErrIdempotencyConflict) {
			c.JSON(http.StatusConflict, APIResponse{
				Success: false,
				Message: "Idempotency key conflict",
				Errors:  err.Error(),
			})
			return
		}
		// An unreachable receipt cache is not a reason to refuse the
		// payload; ingestion itself is idempotent on the database side.
		if err == nil && isDuplicate {
			c.JSON(http.StatusOK, APIResponse{
				Success: true,
				Message: "Kardex already ingested",
				Data:    cached,
			})
			return
		}
	}

	result, err := h.ingestionService.Ingest(c.Request.Context(), &payload, "")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidPayload) || domain.IsMalformedCode(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, APIResponse{
			Success: false,
			Message: "Kardex ingestion failed",
			Errors:  err.Error(),
		})
		return
	}

	if h.idempotencyService != nil {
		_ = h.idempotencyService.StoreResult(c.Request.Context(), idempotencyKey, &payload, result)
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Kardex ingested successfully",
		Data:    result,
	})
}

// GetStudentTranscript handles GET /api/v1/students/:enrollment_id/kardex
func (h *KardexHandler) GetStudentTranscript(c *gin.Context) {
	enrollmentID := c.Param("enrollment_id")
	if enrollmentID == "" {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "enrollment_id is required",
		})
		return
	}

	student, entries, err := h.transcriptService.GetStudentTranscript(c.Request.Context(), enrollmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: "Failed to retrieve transcript",
			Errors:  err.Error(),
		})
		return
	}
	if student == nil {
		c.JSON(http.StatusNotFound, APIResponse{
			Success: false,
			Message: "Student not found",
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Transcript retrieved successfully",
		Data: map[string]interface{}{
			"student": student,
			"entries": entries,
		},
	})
}
