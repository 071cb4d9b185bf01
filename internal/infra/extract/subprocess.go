package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/domain"
)

// ExtractionError carries the subprocess diagnostics so the HTTP layer can
// report what the model actually produced instead of a bare parse failure.
type ExtractionError struct {
	Raw      string
	Cleaned  string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// SubprocessExtractor runs an external command that reads prescription text
// on stdin and prints a JSON array of medications on stdout. Model wrappers
// tend to fence their output in markdown, so the stdout is cleaned before
// decoding.
type SubprocessExtractor struct {
	command []string
	timeout time.Duration
}

func NewSubprocessExtractor(cfg *config.ExtractConfig) *SubprocessExtractor {
	return &SubprocessExtractor{
		command: cfg.Command,
		timeout: cfg.Timeout,
	}
}

func (e *SubprocessExtractor) Extract(ctx context.Context, text string) ([]domain.Medication, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("extraction timed out after %s: %w", e.timeout, ctx.Err())
		}
		return nil, &ExtractionError{
			Raw:      stdout.String(),
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: exitCode(err),
			Err:      err,
		}
	}

	raw := stdout.String()
	cleaned := cleanModelOutput(raw)

	var medications []domain.Medication
	if err := json.Unmarshal([]byte(cleaned), &medications); err != nil {
		return nil, &ExtractionError{
			Raw:     raw,
			Cleaned: cleaned,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     fmt.Errorf("decoding extraction output: %w", err),
		}
	}

	slog.DebugContext(ctx, "extraction completed",
		slog.String("event", "extract.completed"),
		slog.Int("medications", len(medications)),
		slog.Duration("duration", time.Since(started)),
	)

	return medications, nil
}

// cleanModelOutput strips the markdown code fences that LLM output is often
// wrapped in, leaving the bare JSON payload.
func cleanModelOutput(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
