package store

import "context"

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() any
	Close() error
	Migrate(ctx context.Context) error

	// ConsultationRecord model related methods.
	CreateConsultationRecord(ctx context.Context, create *ConsultationRecord) (*ConsultationRecord, error)
	ListConsultationRecords(ctx context.Context, find *FindConsultationRecord) ([]*ConsultationRecord, error)

	// User model related methods.
	GetUser(ctx context.Context, find *FindUser) (*User, error)
}
