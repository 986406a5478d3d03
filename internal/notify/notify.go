package notify

import "context"

// Notifier delivers account emails. Callers treat delivery as best effort.
type Notifier interface {
	SendWelcome(ctx context.Context, toEmail string) error
	SendPasswordReset(ctx context.Context, toEmail, rawToken string) error
}
