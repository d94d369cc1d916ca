package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/tarotlink/store"
)

func (d *DB) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}

	query := `
		SELECT id, COALESCE(email, ''), COALESCE(nickname, '')
		FROM user
		WHERE ` + strings.Join(where, " AND ") + `
		LIMIT 1`

	user := &store.User{}
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Email, &user.Nickname); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
