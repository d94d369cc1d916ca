package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// ErrMalformedRecord marks a stored row that cannot be coerced into a
// valid ConsultationRecord. Malformed rows are skipped during reads, not
// propagated into scoring.
var ErrMalformedRecord = errors.New("malformed consultation record")

// ConsultationRecord is one consultation question a user asked before a
// reading. Rows are immutable once created.
type ConsultationRecord struct {
	ID        int64
	UserID    string
	Question  string
	CreatedTs int64
}

// Validate checks the invariants a row must satisfy after scanning.
// A missing question is legal (it extracts to the sentinel tag); a
// missing owner is not.
func (r *ConsultationRecord) Validate() error {
	if r.UserID == "" {
		return errors.Wrap(ErrMalformedRecord, "empty user id")
	}
	return nil
}

// FindConsultationRecord is the filter for listing consultation records.
// Results are always ordered newest first.
type FindConsultationRecord struct {
	// UserID restricts results to one owner.
	UserID *string
	// ExcludeUserID drops one owner's records, used to build the
	// candidate pool without the requester's own rows.
	ExcludeUserID *string
	// Limit caps the result size.
	Limit *int
}

func (s *Store) CreateConsultationRecord(ctx context.Context, create *ConsultationRecord) (*ConsultationRecord, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}
	return s.driver.CreateConsultationRecord(ctx, create)
}

// ListConsultationRecords returns records matching find, newest first.
// Rows that fail validation are dropped with a warning so one bad row
// cannot poison a matching pass.
func (s *Store) ListConsultationRecords(ctx context.Context, find *FindConsultationRecord) ([]*ConsultationRecord, error) {
	records, err := s.driver.ListConsultationRecords(ctx, find)
	if err != nil {
		return nil, err
	}

	valid := records[:0]
	for _, record := range records {
		if err := record.Validate(); err != nil {
			slog.Warn("skipping malformed consultation record", "id", record.ID, "error", err)
			continue
		}
		valid = append(valid, record)
	}
	return valid, nil
}
