package extract

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/mediware/smart-health-backend/internal/config"
)

func TestCleanModelOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare json",
			raw:  `[{"medicine":"Amoxicillin"}]`,
			want: `[{"medicine":"Amoxicillin"}]`,
		},
		{
			name: "json fence",
			raw:  "```json\n[{\"medicine\":\"Amoxicillin\"}]\n```",
			want: `[{"medicine":"Amoxicillin"}]`,
		},
		{
			name: "anonymous fence",
			raw:  "```\n[]\n```",
			want: "[]",
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\n  [] \n",
			want: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelOutput(tt.raw); got != tt.want {
				t.Errorf("cleanModelOutput(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSubprocessExtractorRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	extractor := NewSubprocessExtractor(&config.ExtractConfig{
		Command: []string{"cat"},
		Timeout: 5 * time.Second,
	})

	input := "```json\n" +
		`[{"medicine":"Amoxicillin","frequency":"1-0-1","days":5},` +
		`{"medicine":"Paracetamol","frequency":"1-1-1","days":3}]` +
		"\n```"

	medications, err := extractor.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(medications) != 2 {
		t.Fatalf("got %d medications, want 2", len(medications))
	}
	if medications[0].Name != "Amoxicillin" || medications[0].FrequencyCode != "1-0-1" || medications[0].DurationDays != 5 {
		t.Errorf("unexpected first medication: %+v", medications[0])
	}
	if medications[1].Name != "Paracetamol" {
		t.Errorf("unexpected second medication: %+v", medications[1])
	}
}

func TestSubprocessExtractorMalformedOutput(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	extractor := NewSubprocessExtractor(&config.ExtractConfig{
		Command: []string{"cat"},
		Timeout: 5 * time.Second,
	})

	_, err := extractor.Extract(context.Background(), "the model refused to answer")
	if err == nil {
		t.Fatal("expected error for non-JSON output")
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %T does not carry extraction diagnostics", err)
	}
	if extractErr.Raw == "" || extractErr.Cleaned == "" {
		t.Errorf("diagnostics missing raw/cleaned output: %+v", extractErr)
	}
}

func TestSubprocessExtractorCommandFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}

	extractor := NewSubprocessExtractor(&config.ExtractConfig{
		Command: []string{"false"},
		Timeout: 5 * time.Second,
	})

	_, err := extractor.Extract(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for failing command")
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %T does not carry extraction diagnostics", err)
	}
	if extractErr.ExitCode != 1 {
		t.Errorf("got exit code %d, want 1", extractErr.ExitCode)
	}
}
