// internal/service/newsletter_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/mail"
	"github.com/unclebandit/newsboard-backend/internal/model"
	"github.com/unclebandit/newsboard-backend/internal/repository"
)

type NewsletterService struct {
	NewsletterRepo repository.NewsletterRepositoryInterface
	RecipientRepo  repository.RecipientRepositoryInterface
	UserRepo       repository.UserRepositoryInterface
	TemplateRepo   repository.TemplateRepositoryInterface
	Renderer       *RenderService
	Mailer         mail.Mailer
	MailFrom       string
}

type CreateNewsletterInput struct {
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Content     string     `json:"content"`
	Audience    string     `json:"audience"`
	CreatedBy   int        `json:"created_by"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// NewsletterDetails is a newsletter plus its per-status ledger counts.
type NewsletterDetails struct {
	*model.Newsletter
	RecipientStats map[string]int `json:"recipient_stats"`
}

// PreviewResult shows what a dispatch would do without touching the ledger.
type PreviewResult struct {
	Subject           string   `json:"subject"`
	Content           string   `json:"content"`
	RecipientsCount   int      `json:"recipients_count"`
	RecipientsPreview []string `json:"recipients_preview"`
}

// previewLimit bounds the recipient sample returned by Preview.
const previewLimit = 10

func (s *NewsletterService) Create(input CreateNewsletterInput) (*model.Newsletter, error) {
	if input.Title == "" {
		return nil, appErrors.NewValidation("title is required")
	}
	if input.Subject == "" {
		return nil, appErrors.NewValidation("subject is required")
	}
	audience, err := model.ParseAudience(input.Audience)
	if err != nil {
		return nil, appErrors.NewValidation("%v", err)
	}

	n := &model.Newsletter{
		Title:       input.Title,
		Subject:     input.Subject,
		Content:     input.Content,
		Status:      model.StatusDraft,
		Audience:    audience,
		CreatedBy:   input.CreatedBy,
		ScheduledAt: input.ScheduledAt,
	}
	if err := s.NewsletterRepo.Create(n); err != nil {
		return nil, fmt.Errorf("create newsletter: %w", err)
	}

	if _, err := s.MaterializeRecipients(n); err != nil {
		return nil, err
	}
	return n, nil
}

// MaterializeRecipients ensures a pending ledger row exists for every user
// in the newsletter's current audience, then refreshes total_recipients.
// Existing rows are left untouched, so repeated calls are idempotent.
func (s *NewsletterService) MaterializeRecipients(n *model.Newsletter) (int, error) {
	if err := s.RecipientRepo.MaterializeAudience(n.ID, n.Audience, time.Now()); err != nil {
		return 0, err
	}

	total, err := s.RecipientRepo.CountByNewsletter(n.ID)
	if err != nil {
		return 0, err
	}
	if err := s.NewsletterRepo.SetTotalRecipients(n.ID, total); err != nil {
		return 0, err
	}
	n.TotalRecipients = total
	return total, nil
}

// Send drives one newsletter through dispatch. Only drafts can be sent; the
// draft -> sending transition is a guarded UPDATE so concurrent calls race
// on the database instead of each other. Errors outside the per-recipient
// loop roll the status back to draft and propagate; ledger rows already
// marked keep their outcome and are skipped by the retry.
func (s *NewsletterService) Send(ctx context.Context, id int) (int, error) {
	n, err := s.NewsletterRepo.GetByID(id)
	if err != nil {
		return 0, err
	}
	if n.Status != model.StatusDraft {
		return 0, appErrors.NewInvalidState("send", n.Status)
	}

	moved, err := s.NewsletterRepo.TransitionStatus(id, model.StatusDraft, model.StatusSending)
	if err != nil {
		return 0, err
	}
	if !moved {
		// lost the race to another sender or a cancel
		fresh, ferr := s.NewsletterRepo.GetByID(id)
		if ferr != nil {
			return 0, ferr
		}
		return 0, appErrors.NewInvalidState("send", fresh.Status)
	}

	sent, err := s.dispatch(ctx, n)
	if err != nil {
		if rbErr := s.NewsletterRepo.UpdateStatus(id, model.StatusDraft); rbErr != nil {
			log.Printf("⚠️ failed to roll back newsletter %d to draft: %v", id, rbErr)
		}
		return 0, fmt.Errorf("send newsletter %d: %w", id, err)
	}
	return sent, nil
}

func (s *NewsletterService) dispatch(ctx context.Context, n *model.Newsletter) (int, error) {
	pending, err := s.RecipientRepo.ListPending(n.ID)
	if err != nil {
		return 0, err
	}

	for _, rcpt := range pending {
		html, err := s.Renderer.RenderForRecipient(n, rcpt)
		if err != nil {
			log.Printf("⚠️ render failed for %s: %v", rcpt.Email, err)
			s.markFailed(rcpt.ID, err)
			continue
		}

		msg := mail.Message{
			To:      rcpt.Email,
			ToName:  rcpt.Username,
			From:    s.MailFrom,
			Subject: n.Subject,
			HTML:    html,
		}
		if err := s.Mailer.Send(ctx, msg); err != nil {
			log.Printf("⚠️ send failed for %s: %v", rcpt.Email, err)
			s.markFailed(rcpt.ID, err)
			continue
		}

		if err := s.RecipientRepo.MarkSent(rcpt.ID, time.Now()); err != nil {
			log.Printf("⚠️ failed to mark recipient %d sent: %v", rcpt.ID, err)
		}
	}

	// Counters come from the ledger, not loop-local tallies: a retry after a
	// rollback finds no pending rows but must still report the outcomes the
	// earlier attempt recorded.
	sentCount, failedCount, err := s.RecipientRepo.CountOutcomes(n.ID)
	if err != nil {
		return 0, err
	}
	if err := s.NewsletterRepo.Finalize(n.ID, sentCount, failedCount, time.Now()); err != nil {
		return 0, err
	}
	return sentCount, nil
}

func (s *NewsletterService) markFailed(recipientID int, cause error) {
	if err := s.RecipientRepo.MarkFailed(recipientID, cause.Error()); err != nil {
		log.Printf("⚠️ failed to mark recipient %d failed: %v", recipientID, err)
	}
}

// Cancel aborts a draft or in-flight newsletter. Pending ledger rows move
// to cancelled; rows that already have an outcome keep it. The status write
// is guarded like Send's, so a dispatch finalizing concurrently cannot be
// overwritten with cancelled.
func (s *NewsletterService) Cancel(id int) error {
	moved, err := s.NewsletterRepo.TransitionStatus(id, model.StatusDraft, model.StatusCancelled)
	if err != nil {
		return err
	}
	if !moved {
		moved, err = s.NewsletterRepo.TransitionStatus(id, model.StatusSending, model.StatusCancelled)
		if err != nil {
			return err
		}
	}
	if !moved {
		fresh, ferr := s.NewsletterRepo.GetByID(id)
		if ferr != nil {
			return ferr
		}
		return appErrors.NewInvalidState("cancel", fresh.Status)
	}

	if _, err := s.RecipientRepo.CancelPending(id); err != nil {
		return err
	}
	return nil
}

// Duplicate creates a fresh draft copy with zeroed counters and no ledger
// rows. The schedule is intentionally not carried over.
func (s *NewsletterService) Duplicate(id int) (*model.Newsletter, error) {
	src, err := s.NewsletterRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	dup := &model.Newsletter{
		Title:     src.Title + " (copy)",
		Subject:   src.Subject,
		Content:   src.Content,
		Status:    model.StatusDraft,
		Audience:  src.Audience,
		CreatedBy: src.CreatedBy,
	}
	if err := s.NewsletterRepo.Create(dup); err != nil {
		return nil, fmt.Errorf("duplicate newsletter: %w", err)
	}
	return dup, nil
}

// Preview evaluates the live audience without materializing anything.
func (s *NewsletterService) Preview(id int) (*PreviewResult, error) {
	n, err := s.NewsletterRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	count, err := s.UserRepo.CountAudience(n.Audience, now)
	if err != nil {
		return nil, err
	}
	sample, err := s.UserRepo.SelectAudience(n.Audience, now, previewLimit)
	if err != nil {
		return nil, err
	}

	preview := make([]string, 0, len(sample))
	for _, u := range sample {
		preview = append(preview, fmt.Sprintf("%s (%s)", u.Username, u.Email))
	}

	return &PreviewResult{
		Subject:           n.Subject,
		Content:           n.Content,
		RecipientsCount:   count,
		RecipientsPreview: preview,
	}, nil
}

func (s *NewsletterService) Get(id int) (*model.Newsletter, error) {
	return s.NewsletterRepo.GetByID(id)
}

func (s *NewsletterService) GetWithStats(id int) (*NewsletterDetails, error) {
	n, err := s.NewsletterRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	counts, err := s.RecipientRepo.StatusCounts(id)
	if err != nil {
		return nil, err
	}
	return &NewsletterDetails{Newsletter: n, RecipientStats: counts}, nil
}

// List fetches newsletters with pagination and optional status/audience
// filters.
func (s *NewsletterService) List(page, pageSize int, status, audience string) ([]model.Newsletter, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.NewsletterRepo.List(offset, pageSize, status, audience)
	if err != nil {
		return nil, nil, err
	}

	newsletters := make([]model.Newsletter, len(ptrs))
	for i, n := range ptrs {
		newsletters[i] = *n
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return newsletters, pagination, nil
}

func (s *NewsletterService) ListRecipients(newsletterID, page, pageSize int, status string) ([]model.NewsletterRecipient, map[string]int, error) {
	if _, err := s.NewsletterRepo.GetByID(newsletterID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.RecipientRepo.List(newsletterID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	recipients := make([]model.NewsletterRecipient, len(ptrs))
	for i, r := range ptrs {
		recipients[i] = *r
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return recipients, pagination, nil
}

// Stats aggregates delivery outcomes across all newsletters. The success
// rate is 0 when nothing has been attempted yet.
func (s *NewsletterService) Stats() (*model.Stats, error) {
	stats, err := s.NewsletterRepo.GetStats()
	if err != nil {
		return nil, err
	}

	attempts := stats.TotalSent + stats.TotalFailed
	if attempts > 0 {
		stats.SuccessRate = float64(stats.TotalSent) / float64(attempts) * 100
	} else {
		stats.SuccessRate = 0
	}
	return stats, nil
}

// CreateFromTemplate stamps a new draft newsletter out of a stored template.
// The audience must be supplied because a newsletter cannot exist without one.
func (s *NewsletterService) CreateFromTemplate(templateID int, audienceStr string, createdBy int) (*model.Newsletter, error) {
	tpl, err := s.TemplateRepo.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, appErrors.NewValidation("template %q is inactive", tpl.Name)
	}

	return s.Create(CreateNewsletterInput{
		Title:     fmt.Sprintf("Newsletter from template '%s'", tpl.Name),
		Subject:   tpl.Subject,
		Content:   tpl.Content,
		Audience:  audienceStr,
		CreatedBy: createdBy,
	})
}
