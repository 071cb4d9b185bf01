package ocr

import "context"

//go:generate mockgen -source=ocr.go -destination=mock.go -package=ocr

// Engine extracts the raw text from a prescription image on disk.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}
