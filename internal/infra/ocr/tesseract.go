package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mediware/smart-health-backend/internal/config"
)

// TesseractEngine shells out to the tesseract binary. Passing "-" as the
// output base makes tesseract write the recognized text to stdout instead of
// a sidecar file.
type TesseractEngine struct {
	binary   string
	language string
	timeout  time.Duration
}

func NewTesseractEngine(cfg *config.OCRConfig) *TesseractEngine {
	return &TesseractEngine{
		binary:   cfg.Binary,
		language: cfg.Language,
		timeout:  cfg.Timeout,
	}
}

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()

	cmd := exec.CommandContext(ctx, e.binary, imagePath, "-", "-l", e.language)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ocr timed out after %s: %w", e.timeout, ctx.Err())
		}
		return "", fmt.Errorf("ocr failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())

	slog.DebugContext(ctx, "ocr completed",
		slog.String("event", "ocr.completed"),
		slog.String("image", imagePath),
		slog.Int("text_length", len(text)),
		slog.Duration("duration", time.Since(started)),
	)

	return text, nil
}
