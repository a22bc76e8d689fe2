// internal/repository/recipient_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unclebandit/newsboard-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	// MaterializeAudience bulk-inserts pending ledger rows for every user
	// currently matching the newsletter's audience. Pairs that already have
	// a row are skipped via the unique constraint, so repeated calls are
	// safe under concurrency.
	MaterializeAudience(newsletterID int, audience model.Audience, now time.Time) error
	CountByNewsletter(newsletterID int) (int, error)

	ListPending(newsletterID int) ([]*model.NewsletterRecipient, error)
	MarkSent(id int, at time.Time) error
	MarkFailed(id int, errMsg string) error
	CancelPending(newsletterID int) (int, error)

	CountOutcomes(newsletterID int) (sent, failed int, err error)
	StatusCounts(newsletterID int) (map[string]int, error)
	List(newsletterID, offset, limit int, status string) ([]*model.NewsletterRecipient, int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

func (r *RecipientRepository) MaterializeAudience(newsletterID int, audience model.Audience, now time.Time) error {
	// Same predicate as selection and counting; an unknown audience yields a
	// FALSE fragment and materializes nobody.
	where, filterArgs := audienceFilter(audience, now, 2)
	query := `
		INSERT INTO newsletter_recipients (newsletter_id, user_id, status)
		SELECT $1, id, 'pending' FROM users WHERE ` + where + `
		ON CONFLICT (newsletter_id, user_id) DO NOTHING`
	args := append([]any{newsletterID}, filterArgs...)

	if _, err := r.DB.Exec(query, args...); err != nil {
		return fmt.Errorf("materialize recipients: %w", err)
	}
	return nil
}

func (r *RecipientRepository) CountByNewsletter(newsletterID int) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM newsletter_recipients WHERE newsletter_id=$1`,
		newsletterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recipients: %w", err)
	}
	return count, nil
}

func (r *RecipientRepository) ListPending(newsletterID int) ([]*model.NewsletterRecipient, error) {
	query := `
		SELECT nr.id, nr.newsletter_id, nr.user_id, nr.status, nr.sent_at, nr.error_message,
		       u.username, u.email
		FROM newsletter_recipients nr
		JOIN users u ON u.id = nr.user_id
		WHERE nr.newsletter_id=$1 AND nr.status=$2
		ORDER BY nr.id
	`
	rows, err := r.DB.Query(query, newsletterID, model.RecipientPending)
	if err != nil {
		return nil, fmt.Errorf("list pending recipients: %w", err)
	}
	defer rows.Close()

	recipients := []*model.NewsletterRecipient{}
	for rows.Next() {
		rec := &model.NewsletterRecipient{}
		if err := rows.Scan(
			&rec.ID, &rec.NewsletterID, &rec.UserID, &rec.Status, &rec.SentAt, &rec.ErrorMessage,
			&rec.Username, &rec.Email,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepository) MarkSent(id int, at time.Time) error {
	_, err := r.DB.Exec(
		`UPDATE newsletter_recipients SET status=$1, sent_at=$2 WHERE id=$3`,
		model.RecipientSent, at, id,
	)
	return err
}

func (r *RecipientRepository) MarkFailed(id int, errMsg string) error {
	_, err := r.DB.Exec(
		`UPDATE newsletter_recipients SET status=$1, error_message=$2 WHERE id=$3`,
		model.RecipientFailed, errMsg, id,
	)
	return err
}

// CancelPending moves still-pending rows to cancelled. Rows already sent or
// failed keep their outcome.
func (r *RecipientRepository) CancelPending(newsletterID int) (int, error) {
	res, err := r.DB.Exec(
		`UPDATE newsletter_recipients SET status=$1 WHERE newsletter_id=$2 AND status=$3`,
		model.RecipientCancelled, newsletterID, model.RecipientPending,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel pending recipients: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *RecipientRepository) CountOutcomes(newsletterID int) (sent, failed int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status='sent'),
			COUNT(*) FILTER (WHERE status='failed')
		FROM newsletter_recipients
		WHERE newsletter_id=$1
	`
	if err := r.DB.QueryRow(query, newsletterID).Scan(&sent, &failed); err != nil {
		return 0, 0, fmt.Errorf("count outcomes: %w", err)
	}
	return sent, failed, nil
}

func (r *RecipientRepository) StatusCounts(newsletterID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM newsletter_recipients WHERE newsletter_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, newsletterID)
	if err != nil {
		return nil, fmt.Errorf("recipient status counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		model.RecipientPending:   0,
		model.RecipientSent:      0,
		model.RecipientFailed:    0,
		model.RecipientCancelled: 0,
		model.RecipientBounced:   0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *RecipientRepository) List(newsletterID, offset, limit int, status string) ([]*model.NewsletterRecipient, int, error) {
	query := `
		SELECT nr.id, nr.newsletter_id, nr.user_id, nr.status, nr.sent_at, nr.error_message,
		       u.username, u.email
		FROM newsletter_recipients nr
		JOIN users u ON u.id = nr.user_id
		WHERE nr.newsletter_id=$1`
	args := []any{newsletterID}
	argPos := 2

	if status != "" {
		query += fmt.Sprintf(" AND nr.status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY nr.id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	recipients := []*model.NewsletterRecipient{}
	for rows.Next() {
		rec := &model.NewsletterRecipient{}
		if err := rows.Scan(
			&rec.ID, &rec.NewsletterID, &rec.UserID, &rec.Status, &rec.SentAt, &rec.ErrorMessage,
			&rec.Username, &rec.Email,
		); err != nil {
			return nil, 0, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}

	countQuery := `SELECT COUNT(*) FROM newsletter_recipients WHERE newsletter_id=$1`
	countArgs := []any{newsletterID}
	if status != "" {
		countQuery += ` AND status=$2`
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipients: %w", err)
	}

	return recipients, total, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
