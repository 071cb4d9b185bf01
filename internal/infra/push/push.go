package push

import "context"

//go:generate mockgen -source=push.go -destination=mock.go -package=push

// Sender delivers one rendered notification to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string) error
}
