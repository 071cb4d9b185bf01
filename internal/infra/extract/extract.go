package extract

import (
	"context"

	"github.com/mediware/smart-health-backend/internal/domain"
)

//go:generate mockgen -source=extract.go -destination=mock.go -package=extract

// Extractor turns free-form prescription text into structured medications.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]domain.Medication, error)
}
