// internal/repository/user_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
)

// UserRepositoryInterface is the read-only view onto the account directory.
type UserRepositoryInterface interface {
	GetByID(id int) (*model.User, error)
	// SelectAudience returns users matching the audience rule as of now.
	// limit <= 0 means no limit. The result is live, not a snapshot.
	SelectAudience(audience model.Audience, now time.Time, limit int) ([]model.User, error)
	CountAudience(audience model.Audience, now time.Time) (int, error)
}

type UserRepository struct {
	DB *sql.DB
}

// audienceFilter translates an audience rule into a WHERE fragment over the
// users table, numbering placeholders from argPos. It is the single source of
// the audience predicate; selection, counting and materialization all build
// on it. Unknown audiences match nobody.
func audienceFilter(audience model.Audience, now time.Time, argPos int) (string, []any) {
	cutoff := now.Add(-model.NewUserWindow)
	switch audience {
	case model.AudienceAll:
		return `is_active = TRUE`, nil
	case model.AudienceActive:
		return fmt.Sprintf(`is_active = TRUE AND date_joined < $%d`, argPos), []any{cutoff}
	case model.AudienceNew:
		return fmt.Sprintf(`is_active = TRUE AND date_joined >= $%d`, argPos), []any{cutoff}
	}
	return `FALSE`, nil
}

func (r *UserRepository) GetByID(id int) (*model.User, error) {
	query := `SELECT id, username, email, is_active, date_joined FROM users WHERE id=$1`
	var u model.User
	err := r.DB.QueryRow(query, id).Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.DateJoined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewUserNotFound(id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) SelectAudience(audience model.Audience, now time.Time, limit int) ([]model.User, error) {
	where, args := audienceFilter(audience, now, 1)
	query := `SELECT id, username, email, is_active, date_joined FROM users WHERE ` + where + ` ORDER BY id`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select audience: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.DateJoined); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountAudience(audience model.Audience, now time.Time) (int, error) {
	where, args := audienceFilter(audience, now, 1)
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audience: %w", err)
	}
	return count, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
