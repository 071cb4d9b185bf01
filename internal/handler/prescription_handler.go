package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mediware/smart-health-backend/internal/infra/extract"
	"github.com/mediware/smart-health-backend/internal/infra/ocr"
	"github.com/mediware/smart-health-backend/internal/service/schedule"
)

type PrescriptionHandler struct {
	ocrEngine ocr.Engine
	extractor extract.Extractor
	scheduler *schedule.Scheduler
	uploadDir string
	now       func() time.Time
}

func NewPrescriptionHandler(
	ocrEngine ocr.Engine,
	extractor extract.Extractor,
	scheduler *schedule.Scheduler,
	uploadDir string,
) *PrescriptionHandler {
	return &PrescriptionHandler{
		ocrEngine: ocrEngine,
		extractor: extractor,
		scheduler: scheduler,
		uploadDir: uploadDir,
		now:       time.Now,
	}
}

// HandleRoot is a plain liveness probe for the prescription route group.
func (h *PrescriptionHandler) HandleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Prescription route is working")
}

// HandleUpload receives a prescription image, runs OCR and structured
// extraction on it, and schedules reminder jobs for every recognized
// medication.
func (h *PrescriptionHandler) HandleUpload(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "no image uploaded")
		return
	}

	filename := fmt.Sprintf("%d-%s", h.now().UnixMilli(), filepath.Base(file.Filename))
	imagePath := filepath.Join(h.uploadDir, filename)

	if err := c.SaveUploadedFile(file, imagePath); err != nil {
		slog.ErrorContext(ctx, "failed to save uploaded image",
			slog.String("event", "prescription.upload.save_failed"),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to save uploaded image")
		return
	}

	slog.InfoContext(ctx, "prescription image received",
		slog.String("event", "prescription.upload.received"),
		slog.String("image", imagePath),
		slog.Int64("size_bytes", file.Size),
	)

	text, err := h.ocrEngine.Recognize(ctx, imagePath)
	if err != nil {
		slog.ErrorContext(ctx, "ocr failed",
			slog.String("event", "prescription.ocr.failed"),
			slog.String("image", imagePath),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to read text from image")
		return
	}

	medications, err := h.extractor.Extract(ctx, text)
	if err != nil {
		var extractErr *extract.ExtractionError
		if errors.As(err, &extractErr) {
			slog.ErrorContext(ctx, "structured extraction failed",
				slog.String("event", "prescription.extract.failed"),
				slog.String("image", imagePath),
				slog.String("stderr", extractErr.Stderr),
				slog.Int("exit_code", extractErr.ExitCode),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "failed to extract medications from prescription",
				"raw_output": extractErr.Raw,
			})
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to extract medications from prescription")
		return
	}

	scheduled, err := h.scheduler.ScheduleMedications(ctx, medications)
	if err != nil {
		slog.ErrorContext(ctx, "failed to schedule reminders",
			slog.String("event", "prescription.schedule.failed"),
			slog.Int("scheduled_before_failure", scheduled),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to schedule reminders")
		return
	}

	slog.InfoContext(ctx, "prescription processed",
		slog.String("event", "prescription.processed"),
		slog.Int("medications", len(medications)),
		slog.Int("jobs_scheduled", scheduled),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Prescription processed successfully",
		"filename":       filename,
		"filepath":       imagePath,
		"extracted_text": text,
		"medications":    medications,
		"jobs_scheduled": scheduled,
	})
}
