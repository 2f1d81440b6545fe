package staff

import "context"

// StaffRepository is the read-only staff profile provider.
type StaffRepository interface {
	// GetByID returns ErrStaffNotFound when no row matches.
	GetByID(ctx context.Context, staffID string) (Staff, error)

	// ListActive returns active staff ordered by staff_id.
	ListActive(ctx context.Context) ([]Staff, error)

	// GetMany returns the staff rows for the given IDs, keyed by staff_id.
	GetMany(ctx context.Context, staffIDs []string) (map[string]Staff, error)
}
