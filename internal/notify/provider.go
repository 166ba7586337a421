package notify

import "context"

// Provider delivers out-of-band notifications. Implementations are
// interchangeable and selected by configuration; callers only see this
// interface.
type Provider interface {
	Send(ctx context.Context, to []string, subject, body string) error
	Name() string
}
