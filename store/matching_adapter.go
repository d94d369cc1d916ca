package store

import (
	"context"

	"github.com/hrygo/tarotlink/ai/matching"
)

// MatchingAdapter exposes the store through the matching engine's
// collaborator interfaces, keeping the engine free of storage concerns.
type MatchingAdapter struct {
	store *Store
}

// NewMatchingAdapter wraps the store for the matching engine.
func NewMatchingAdapter(s *Store) *MatchingAdapter {
	return &MatchingAdapter{store: s}
}

var _ matching.RecordSource = (*MatchingAdapter)(nil)
var _ matching.IdentityResolver = (*MatchingAdapter)(nil)

// RecentRecords implements matching.RecordSource.
func (a *MatchingAdapter) RecentRecords(ctx context.Context, userID string, excludeUserID string, limit int) ([]*matching.ConsultationRecord, error) {
	find := &FindConsultationRecord{Limit: &limit}
	if userID != "" {
		find.UserID = &userID
	}
	if excludeUserID != "" {
		find.ExcludeUserID = &excludeUserID
	}

	records, err := a.store.ListConsultationRecords(ctx, find)
	if err != nil {
		return nil, err
	}

	result := make([]*matching.ConsultationRecord, 0, len(records))
	for _, record := range records {
		result = append(result, &matching.ConsultationRecord{
			UserID:    record.UserID,
			Question:  record.Question,
			CreatedTs: record.CreatedTs,
		})
	}
	return result, nil
}

// ResolveDisplayName implements matching.IdentityResolver. An unknown
// user resolves to an empty name, which the engine replaces with its
// anonymous placeholder.
func (a *MatchingAdapter) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := a.store.GetUser(ctx, &FindUser{ID: &userID})
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.DisplayName(), nil
}
