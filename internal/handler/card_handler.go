package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardlens/internal/config"
	"cardlens/internal/domain"
	"cardlens/internal/port"
	"cardlens/internal/service"
)

// exportFilename matches the download name the original tool used.
const exportFilename = "insurance_card_data.json"

// CardHandler handles insurance card submission endpoints.
type CardHandler struct {
	cards service.CardService
	cfg   *config.UploadConfig
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards service.CardService, cfg *config.UploadConfig) *CardHandler {
	return &CardHandler{cards: cards, cfg: cfg}
}

// Extract handles POST /api/v1/cards/extract.
// Multipart form: "front" (required), "back" (optional),
// "skip_validation" ("true" to bypass the classification gate).
func (h *CardHandler) Extract(c *gin.Context) {
	out, err := h.process(c)
	if err != nil {
		h.respondPipelineError(c, out, err)
		return
	}
	RespondOK(c, out)
}

// Download handles POST /api/v1/cards/extract/download. It runs the same
// pipeline but responds with the extraction result as a JSON attachment.
func (h *CardHandler) Download(c *gin.Context) {
	out, err := h.process(c)
	if err != nil {
		h.respondPipelineError(c, out, err)
		return
	}

	payload, err := json.MarshalIndent(out.Extraction, "", "  ")
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	c.Data(http.StatusOK, "application/json", payload)
}

func (h *CardHandler) process(c *gin.Context) (*service.ProcessOutput, error) {
	front, err := h.readSide(c, "front")
	if err != nil {
		return nil, err
	}
	if front == nil {
		return nil, errMissingFront
	}

	back, err := h.readSide(c, "back")
	if err != nil {
		return nil, err
	}

	input := service.ProcessInput{
		Front:          *front,
		Back:           back,
		SkipValidation: c.PostForm("skip_validation") == "true",
	}
	return h.cards.Process(c.Request.Context(), input)
}

var errMissingFront = errors.New("front side file is required")

// readSide reads one multipart file field. A missing field returns
// (nil, nil) so callers can distinguish "absent" from "bad".
func (h *CardHandler) readSide(c *gin.Context, field string) (*port.SideFile, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s field: %w", field, err)
	}

	if fileHeader.Size > h.cfg.MaxFileBytes() {
		return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrFileTooLarge, field, fileHeader.Size)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s upload: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s upload: %w", field, err)
	}

	return &port.SideFile{Filename: fileHeader.Filename, Data: data}, nil
}

// respondPipelineError renders a pipeline failure. A negative
// classification still carries the validation status in the response body.
func (h *CardHandler) respondPipelineError(c *gin.Context, out *service.ProcessOutput, err error) {
	if errors.Is(err, errMissingFront) {
		RespondError(c, http.StatusBadRequest, "MISSING_FRONT", "front side file is required")
		return
	}
	if errors.Is(err, domain.ErrNotInsuranceCard) && out != nil {
		status, code, msg := MapDomainError(err)
		c.JSON(status, APIResponse{
			Success: false,
			Data:    out,
			Error:   &APIError{Code: code, Message: msg},
		})
		return
	}
	HandleError(c, err)
}
