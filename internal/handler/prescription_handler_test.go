package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/infra/extract"
	"github.com/mediware/smart-health-backend/internal/infra/ocr"
	"github.com/mediware/smart-health-backend/internal/service/schedule"
)

type captureQueue struct {
	events []domain.ScheduledEvent
	err    error
}

func (q *captureQueue) Submit(_ context.Context, event domain.ScheduledEvent, _ time.Duration) error {
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, event)
	return nil
}

func newUploadRequest(t *testing.T, field, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/prescriptions/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newPrescriptionRouter(t *testing.T, engine ocr.Engine, extractor extract.Extractor, queue *captureQueue) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	scheduler := schedule.NewScheduler(schedule.NewExpander(loc, 9), queue)
	h := NewPrescriptionHandler(engine, extractor, scheduler, t.TempDir())

	router := gin.New()
	router.GET("/api/prescriptions", h.HandleRoot)
	router.POST("/api/prescriptions/upload", h.HandleUpload)
	return router
}

func TestPrescriptionRoot(t *testing.T) {
	router := newPrescriptionRouter(t, nil, nil, &captureQueue{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prescriptions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Prescription route is working" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestUploadSchedulesReminders(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ocr.NewMockEngine(ctrl)
	extractor := extract.NewMockExtractor(ctrl)
	queue := &captureQueue{}

	engine.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return("Amoxicillin 500mg 1-0-1 x 2 days", nil)
	extractor.EXPECT().Extract(gomock.Any(), "Amoxicillin 500mg 1-0-1 x 2 days").Return([]domain.Medication{
		{Name: "Amoxicillin", FrequencyCode: "1-0-1", DurationDays: 2},
	}, nil)

	router := newPrescriptionRouter(t, engine, extractor, queue)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newUploadRequest(t, "image", "prescription.jpg"))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Two slots over two days plus one refill reminder.
	if len(queue.events) != 5 {
		t.Errorf("got %d scheduled jobs, want 5", len(queue.events))
	}
	if !strings.Contains(rec.Body.String(), `"jobs_scheduled":5`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestUploadWithoutImage(t *testing.T) {
	router := newPrescriptionRouter(t, nil, nil, &captureQueue{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newUploadRequest(t, "document", "prescription.jpg"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no image uploaded") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestUploadOCRFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ocr.NewMockEngine(ctrl)

	engine.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return("", errors.New("tesseract crashed"))

	router := newPrescriptionRouter(t, engine, nil, &captureQueue{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newUploadRequest(t, "image", "prescription.jpg"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", rec.Code)
	}
}

func TestUploadExtractionFailureReportsDiagnostics(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ocr.NewMockEngine(ctrl)
	extractor := extract.NewMockExtractor(ctrl)

	engine.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return("illegible scrawl", nil)
	extractor.EXPECT().Extract(gomock.Any(), "illegible scrawl").Return(nil, &extract.ExtractionError{
		Raw: "I could not find any medications in this text.",
		Err: errors.New("decoding extraction output: invalid character 'I'"),
	})

	router := newPrescriptionRouter(t, engine, extractor, &captureQueue{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newUploadRequest(t, "image", "prescription.jpg"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not find any medications") {
		t.Errorf("raw model output missing from body: %s", rec.Body.String())
	}
}

func TestUploadSchedulingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ocr.NewMockEngine(ctrl)
	extractor := extract.NewMockExtractor(ctrl)
	queue := &captureQueue{err: errors.New("redis unavailable")}

	engine.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return("text", nil)
	extractor.EXPECT().Extract(gomock.Any(), "text").Return([]domain.Medication{
		{Name: "Amoxicillin", FrequencyCode: "1-0-1", DurationDays: 2},
	}, nil)

	router := newPrescriptionRouter(t, engine, extractor, queue)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newUploadRequest(t, "image", "prescription.jpg"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", rec.Code)
	}
}
