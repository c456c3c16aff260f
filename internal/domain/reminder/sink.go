package reminder

import "context"

// Sink is the platform capability that asks for permission and displays reminders.
// Show is fire-and-forget: callers log a returned error and never retry.
type Sink interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, title, body string) error
}
