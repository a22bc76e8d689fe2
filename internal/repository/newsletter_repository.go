// internal/repository/newsletter_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
)

type NewsletterRepositoryInterface interface {
	Create(n *model.Newsletter) error
	GetByID(id int) (*model.Newsletter, error)
	List(offset, limit int, status string, audience string) ([]*model.Newsletter, int, error)

	// TransitionStatus flips status from -> to in a single guarded UPDATE
	// and reports whether the row actually moved. Concurrent senders race
	// on this guard instead of on a read-then-write.
	TransitionStatus(id int, from, to string) (bool, error)
	UpdateStatus(id int, status string) error
	Finalize(id, sentCount, failedCount int, sentAt time.Time) error
	SetTotalRecipients(id, total int) error

	ListScheduledDue(now time.Time) ([]*model.Newsletter, error)
	DeleteOlderThan(cutoff time.Time) (int, error)
	GetStats() (*model.Stats, error)
}

type NewsletterRepository struct {
	DB *sql.DB
}

const newsletterColumns = `id, title, subject, content, status, audience, created_by,
	created_at, scheduled_at, sent_at, total_recipients, sent_count, failed_count`

func scanNewsletter(row interface{ Scan(...any) error }) (*model.Newsletter, error) {
	var n model.Newsletter
	err := row.Scan(
		&n.ID, &n.Title, &n.Subject, &n.Content, &n.Status, &n.Audience, &n.CreatedBy,
		&n.CreatedAt, &n.ScheduledAt, &n.SentAt, &n.TotalRecipients, &n.SentCount, &n.FailedCount,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NewsletterRepository) Create(n *model.Newsletter) error {
	if n.Status == "" {
		n.Status = model.StatusDraft
	}
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO newsletters (title, subject, content, status, audience, created_by, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.DB.QueryRow(
		query,
		n.Title, n.Subject, n.Content, n.Status, n.Audience, n.CreatedBy, n.ScheduledAt, n.CreatedAt,
	).Scan(&n.ID)
}

func (r *NewsletterRepository) GetByID(id int) (*model.Newsletter, error) {
	query := `SELECT ` + newsletterColumns + ` FROM newsletters WHERE id=$1`
	n, err := scanNewsletter(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNewsletterNotFound(id)
		}
		return nil, fmt.Errorf("get newsletter: %w", err)
	}
	return n, nil
}

func (r *NewsletterRepository) List(offset, limit int, status string, audience string) ([]*model.Newsletter, int, error) {
	query := `SELECT ` + newsletterColumns + ` FROM newsletters WHERE 1=1`
	args := []any{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	if audience != "" {
		query += fmt.Sprintf(" AND audience=$%d", argPos)
		args = append(args, audience)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list newsletters: %w", err)
	}
	defer rows.Close()

	newsletters := []*model.Newsletter{}
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan newsletter: %w", err)
		}
		newsletters = append(newsletters, n)
	}

	countQuery := `SELECT COUNT(*) FROM newsletters WHERE 1=1`
	countArgs := []any{}
	countPos := 1
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", countPos)
		countArgs = append(countArgs, status)
		countPos++
	}
	if audience != "" {
		countQuery += fmt.Sprintf(" AND audience=$%d", countPos)
		countArgs = append(countArgs, audience)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count newsletters: %w", err)
	}

	return newsletters, total, nil
}

func (r *NewsletterRepository) TransitionStatus(id int, from, to string) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE newsletters SET status=$1 WHERE id=$2 AND status=$3`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *NewsletterRepository) UpdateStatus(id int, status string) error {
	_, err := r.DB.Exec(`UPDATE newsletters SET status=$1 WHERE id=$2`, status, id)
	return err
}

// Finalize closes out a dispatch: counters, sent timestamp and terminal
// status in one write.
func (r *NewsletterRepository) Finalize(id, sentCount, failedCount int, sentAt time.Time) error {
	_, err := r.DB.Exec(
		`UPDATE newsletters SET status=$1, sent_count=$2, failed_count=$3, sent_at=$4 WHERE id=$5`,
		model.StatusSent, sentCount, failedCount, sentAt, id,
	)
	return err
}

func (r *NewsletterRepository) SetTotalRecipients(id, total int) error {
	_, err := r.DB.Exec(`UPDATE newsletters SET total_recipients=$1 WHERE id=$2`, total, id)
	return err
}

func (r *NewsletterRepository) ListScheduledDue(now time.Time) ([]*model.Newsletter, error) {
	query := `SELECT ` + newsletterColumns + `
		FROM newsletters
		WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at`
	rows, err := r.DB.Query(query, model.StatusDraft, now)
	if err != nil {
		return nil, fmt.Errorf("list due newsletters: %w", err)
	}
	defer rows.Close()

	due := []*model.Newsletter{}
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		due = append(due, n)
	}
	return due, rows.Err()
}

// DeleteOlderThan removes terminal newsletters created before the cutoff.
// Ledger rows go with them via ON DELETE CASCADE.
func (r *NewsletterRepository) DeleteOlderThan(cutoff time.Time) (int, error) {
	res, err := r.DB.Exec(
		`DELETE FROM newsletters WHERE status IN ($1, $2) AND created_at < $3`,
		model.StatusSent, model.StatusCancelled, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old newsletters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *NewsletterRepository) GetStats() (*model.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status='draft'),
			COUNT(*) FILTER (WHERE status='sending'),
			COUNT(*) FILTER (WHERE status='sent'),
			COUNT(*) FILTER (WHERE status='cancelled'),
			COALESCE(SUM(total_recipients), 0),
			COALESCE(SUM(sent_count), 0),
			COALESCE(SUM(failed_count), 0)
		FROM newsletters
	`
	var s model.Stats
	err := r.DB.QueryRow(query).Scan(
		&s.TotalNewsletters, &s.DraftCount, &s.SendingCount, &s.SentCount, &s.CancelledCount,
		&s.TotalRecipients, &s.TotalSent, &s.TotalFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("newsletter stats: %w", err)
	}
	return &s, nil
}

var _ NewsletterRepositoryInterface = (*NewsletterRepository)(nil)
