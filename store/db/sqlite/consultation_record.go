package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/tarotlink/store"
)

func (d *DB) CreateConsultationRecord(ctx context.Context, create *store.ConsultationRecord) (*store.ConsultationRecord, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO consultation_record (user_id, question, created_ts)
		VALUES (?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, create.UserID, create.Question, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create consultation_record: %w", err)
	}

	return create, nil
}

func (d *DB) ListConsultationRecords(ctx context.Context, find *store.FindConsultationRecord) ([]*store.ConsultationRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.ExcludeUserID != nil {
		where, args = append(where, "user_id <> ?"), append(args, *find.ExcludeUserID)
	}

	query := `
		SELECT id, user_id, COALESCE(question, ''), created_ts
		FROM consultation_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultation_records: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ConsultationRecord, 0)
	for rows.Next() {
		record := &store.ConsultationRecord{}
		var userID sql.NullString
		if err := rows.Scan(&record.ID, &userID, &record.Question, &record.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan consultation_record: %w", err)
		}
		record.UserID = userID.String
		list = append(list, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consultation_records: %w", err)
	}

	return list, nil
}
