package config

import (
	"strings"
	"time"
)

const (
	defaultExtractCommand = "python3 gemini.py"
	defaultExtractTimeout = 60 * time.Second

	defaultOCRBinary   = "tesseract"
	defaultOCRLanguage = "eng"
	defaultOCRTimeout  = 120 * time.Second
)

// ExtractConfig configures the external structured-extraction subprocess.
// The command receives OCR text on stdin and must print a JSON array of
// medications on stdout.
type ExtractConfig struct {
	Command []string
	Timeout time.Duration
}

func LoadExtractConfig() (*ExtractConfig, error) {
	command := strings.Fields(getEnvOrDefault("EXTRACT_COMMAND", defaultExtractCommand))
	if len(command) == 0 {
		return nil, ErrExtractCommandMissing
	}

	timeout, err := getEnvDuration("EXTRACT_TIMEOUT", defaultExtractTimeout)
	if err != nil {
		return nil, err
	}

	return &ExtractConfig{
		Command: command,
		Timeout: timeout,
	}, nil
}

type OCRConfig struct {
	Binary   string
	Language string
	Timeout  time.Duration
}

func LoadOCRConfig() (*OCRConfig, error) {
	timeout, err := getEnvDuration("OCR_TIMEOUT", defaultOCRTimeout)
	if err != nil {
		return nil, err
	}

	return &OCRConfig{
		Binary:   getEnvOrDefault("OCR_BINARY", defaultOCRBinary),
		Language: getEnvOrDefault("OCR_LANGUAGE", defaultOCRLanguage),
		Timeout:  timeout,
	}, nil
}
