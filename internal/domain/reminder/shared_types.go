// internal/domain/reminder/shared_types.go
package reminder

// Permission is the session-wide answer to the notification permission prompt.
type Permission int32

const (
	PermissionUnknown Permission = iota // Not requested yet, or the prompt was dismissed
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}
