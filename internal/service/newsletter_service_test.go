package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/mail"
	"github.com/unclebandit/newsboard-backend/internal/model"
	"github.com/unclebandit/newsboard-backend/internal/service"
)

// --- In-memory fakes ---

type memNewsletterRepo struct {
	newsletters map[int]*model.Newsletter
	nextID      int

	// beforeTransition runs at the top of TransitionStatus, letting a test
	// interleave a concurrent status change with the guarded write.
	beforeTransition func()
}

func newMemNewsletterRepo() *memNewsletterRepo {
	return &memNewsletterRepo{newsletters: map[int]*model.Newsletter{}, nextID: 1}
}

func (m *memNewsletterRepo) Create(n *model.Newsletter) error {
	if n.Status == "" {
		n.Status = model.StatusDraft
	}
	n.ID = m.nextID
	m.nextID++
	n.CreatedAt = time.Now()
	clone := *n
	m.newsletters[n.ID] = &clone
	return nil
}

func (m *memNewsletterRepo) GetByID(id int) (*model.Newsletter, error) {
	n, ok := m.newsletters[id]
	if !ok {
		return nil, appErrors.NewNewsletterNotFound(id)
	}
	clone := *n
	return &clone, nil
}

func (m *memNewsletterRepo) List(offset, limit int, status, audience string) ([]*model.Newsletter, int, error) {
	out := []*model.Newsletter{}
	for _, n := range m.newsletters {
		if status != "" && n.Status != status {
			continue
		}
		if audience != "" && string(n.Audience) != audience {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memNewsletterRepo) TransitionStatus(id int, from, to string) (bool, error) {
	if m.beforeTransition != nil {
		m.beforeTransition()
	}
	n, ok := m.newsletters[id]
	if !ok || n.Status != from {
		return false, nil
	}
	n.Status = to
	return true, nil
}

func (m *memNewsletterRepo) UpdateStatus(id int, status string) error {
	n, ok := m.newsletters[id]
	if !ok {
		return appErrors.NewNewsletterNotFound(id)
	}
	n.Status = status
	return nil
}

func (m *memNewsletterRepo) Finalize(id, sentCount, failedCount int, sentAt time.Time) error {
	n, ok := m.newsletters[id]
	if !ok {
		return appErrors.NewNewsletterNotFound(id)
	}
	n.Status = model.StatusSent
	n.SentCount = sentCount
	n.FailedCount = failedCount
	n.SentAt = &sentAt
	return nil
}

func (m *memNewsletterRepo) SetTotalRecipients(id, total int) error {
	n, ok := m.newsletters[id]
	if !ok {
		return appErrors.NewNewsletterNotFound(id)
	}
	n.TotalRecipients = total
	return nil
}

func (m *memNewsletterRepo) ListScheduledDue(now time.Time) ([]*model.Newsletter, error) {
	due := []*model.Newsletter{}
	for _, n := range m.newsletters {
		if n.Status == model.StatusDraft && n.ScheduledAt != nil && !n.ScheduledAt.After(now) {
			clone := *n
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (m *memNewsletterRepo) DeleteOlderThan(cutoff time.Time) (int, error) {
	count := 0
	for id, n := range m.newsletters {
		if (n.Status == model.StatusSent || n.Status == model.StatusCancelled) && n.CreatedAt.Before(cutoff) {
			delete(m.newsletters, id)
			count++
		}
	}
	return count, nil
}

func (m *memNewsletterRepo) GetStats() (*model.Stats, error) {
	s := &model.Stats{}
	for _, n := range m.newsletters {
		s.TotalNewsletters++
		switch n.Status {
		case model.StatusDraft:
			s.DraftCount++
		case model.StatusSending:
			s.SendingCount++
		case model.StatusSent:
			s.SentCount++
		case model.StatusCancelled:
			s.CancelledCount++
		}
		s.TotalRecipients += n.TotalRecipients
		s.TotalSent += n.SentCount
		s.TotalFailed += n.FailedCount
	}
	return s, nil
}

func audienceMatch(u model.User, audience model.Audience, now time.Time) bool {
	if !u.IsActive {
		return false
	}
	cutoff := now.Add(-model.NewUserWindow)
	switch audience {
	case model.AudienceAll:
		return true
	case model.AudienceActive:
		return u.DateJoined.Before(cutoff)
	case model.AudienceNew:
		return !u.DateJoined.Before(cutoff)
	}
	return false
}

type memRecipientRepo struct {
	recipients            map[int]*model.NewsletterRecipient
	nextID                int
	users                 []model.User
	failListPending       bool
	failCountOutcomesOnce bool
}

func newMemRecipientRepo(users []model.User) *memRecipientRepo {
	return &memRecipientRepo{recipients: map[int]*model.NewsletterRecipient{}, nextID: 1, users: users}
}

func (m *memRecipientRepo) MaterializeAudience(newsletterID int, audience model.Audience, now time.Time) error {
	for _, u := range m.users {
		if !audienceMatch(u, audience, now) {
			continue
		}
		exists := false
		for _, r := range m.recipients {
			if r.NewsletterID == newsletterID && r.UserID == u.ID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		m.recipients[m.nextID] = &model.NewsletterRecipient{
			ID:           m.nextID,
			NewsletterID: newsletterID,
			UserID:       u.ID,
			Status:       model.RecipientPending,
			Username:     u.Username,
			Email:        u.Email,
		}
		m.nextID++
	}
	return nil
}

func (m *memRecipientRepo) CountByNewsletter(newsletterID int) (int, error) {
	count := 0
	for _, r := range m.recipients {
		if r.NewsletterID == newsletterID {
			count++
		}
	}
	return count, nil
}

func (m *memRecipientRepo) ListPending(newsletterID int) ([]*model.NewsletterRecipient, error) {
	if m.failListPending {
		return nil, errors.New("ledger unavailable")
	}
	out := []*model.NewsletterRecipient{}
	for _, r := range m.recipients {
		if r.NewsletterID == newsletterID && r.Status == model.RecipientPending {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRecipientRepo) MarkSent(id int, at time.Time) error {
	r, ok := m.recipients[id]
	if !ok {
		return errors.New("recipient not found")
	}
	r.Status = model.RecipientSent
	r.SentAt = &at
	return nil
}

func (m *memRecipientRepo) MarkFailed(id int, errMsg string) error {
	r, ok := m.recipients[id]
	if !ok {
		return errors.New("recipient not found")
	}
	r.Status = model.RecipientFailed
	r.ErrorMessage = errMsg
	return nil
}

func (m *memRecipientRepo) CancelPending(newsletterID int) (int, error) {
	count := 0
	for _, r := range m.recipients {
		if r.NewsletterID == newsletterID && r.Status == model.RecipientPending {
			r.Status = model.RecipientCancelled
			count++
		}
	}
	return count, nil
}

func (m *memRecipientRepo) CountOutcomes(newsletterID int) (sent, failed int, err error) {
	if m.failCountOutcomesOnce {
		m.failCountOutcomesOnce = false
		return 0, 0, errors.New("ledger unavailable")
	}
	for _, r := range m.recipients {
		if r.NewsletterID != newsletterID {
			continue
		}
		switch r.Status {
		case model.RecipientSent:
			sent++
		case model.RecipientFailed:
			failed++
		}
	}
	return sent, failed, nil
}

func (m *memRecipientRepo) StatusCounts(newsletterID int) (map[string]int, error) {
	counts := map[string]int{}
	for _, r := range m.recipients {
		if r.NewsletterID == newsletterID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *memRecipientRepo) List(newsletterID, offset, limit int, status string) ([]*model.NewsletterRecipient, int, error) {
	out := []*model.NewsletterRecipient{}
	for _, r := range m.recipients {
		if r.NewsletterID != newsletterID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type memUserRepo struct {
	users []model.User
}

func (m *memUserRepo) GetByID(id int) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			clone := u
			return &clone, nil
		}
	}
	return nil, appErrors.NewUserNotFound(id)
}

func (m *memUserRepo) SelectAudience(audience model.Audience, now time.Time, limit int) ([]model.User, error) {
	out := []model.User{}
	for _, u := range m.users {
		if audienceMatch(u, audience, now) {
			out = append(out, u)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memUserRepo) CountAudience(audience model.Audience, now time.Time) (int, error) {
	count := 0
	for _, u := range m.users {
		if audienceMatch(u, audience, now) {
			count++
		}
	}
	return count, nil
}

type memTemplateRepo struct {
	templates map[int]*model.NewsletterTemplate
}

func (m *memTemplateRepo) Create(t *model.NewsletterTemplate) error {
	t.ID = len(m.templates) + 1
	m.templates[t.ID] = t
	return nil
}

func (m *memTemplateRepo) GetByID(id int) (*model.NewsletterTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, appErrors.NewTemplateNotFound(id)
	}
	return t, nil
}

func (m *memTemplateRepo) List() ([]*model.NewsletterTemplate, error) {
	out := []*model.NewsletterTemplate{}
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTemplateRepo) Update(t *model.NewsletterTemplate) error { return nil }
func (m *memTemplateRepo) Delete(id int) error                      { return nil }

type mockMailer struct {
	sent    []mail.Message
	failFor map[string]string // recipient email -> error text
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	if reason, ok := m.failFor[msg.To]; ok {
		return errors.New(reason)
	}
	m.sent = append(m.sent, msg)
	return nil
}

// --- Fixtures ---

func daysAgo(n int) time.Time {
	return time.Now().Add(-time.Duration(n) * 24 * time.Hour)
}

func testUsers() []model.User {
	return []model.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true, DateJoined: daysAgo(1)},
		{ID: 2, Username: "bob", Email: "bob@example.com", IsActive: true, DateJoined: daysAgo(1)},
		{ID: 3, Username: "carol", Email: "carol@example.com", IsActive: true, DateJoined: daysAgo(1)},
		{ID: 4, Username: "dave", Email: "dave@example.com", IsActive: true, DateJoined: daysAgo(10)},
		{ID: 5, Username: "erin", Email: "erin@example.com", IsActive: true, DateJoined: daysAgo(10)},
		{ID: 6, Username: "mallory", Email: "mallory@example.com", IsActive: false, DateJoined: daysAgo(1)},
	}
}

type testEnv struct {
	svc            *service.NewsletterService
	newsletterRepo *memNewsletterRepo
	recipientRepo  *memRecipientRepo
	mailer         *mockMailer
}

func newTestEnv(users []model.User) *testEnv {
	newsletterRepo := newMemNewsletterRepo()
	recipientRepo := newMemRecipientRepo(users)
	mailer := &mockMailer{failFor: map[string]string{}}

	svc := &service.NewsletterService{
		NewsletterRepo: newsletterRepo,
		RecipientRepo:  recipientRepo,
		UserRepo:       &memUserRepo{users: users},
		TemplateRepo:   &memTemplateRepo{templates: map[int]*model.NewsletterTemplate{}},
		Renderer:       service.NewRenderService("http://test.local"),
		Mailer:         mailer,
		MailFrom:       "noreply@test.local",
	}
	return &testEnv{svc: svc, newsletterRepo: newsletterRepo, recipientRepo: recipientRepo, mailer: mailer}
}

// --- Tests ---

func TestCreateRejectsInvalidAudience(t *testing.T) {
	env := newTestEnv(testUsers())

	_, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Bad",
		Subject:  "Bad",
		Audience: "everyone",
	})
	if err == nil {
		t.Fatal("expected validation error for unknown audience")
	}
	if !appErrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(env.newsletterRepo.newsletters) != 0 {
		t.Error("no newsletter row should be written on validation failure")
	}
}

func TestCreateMaterializesNewAudience(t *testing.T) {
	// 3 users joined 1 day ago, 2 joined 10 days ago, 1 inactive:
	// audience "new" should produce exactly 3 ledger rows.
	env := newTestEnv(testUsers())

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Welcome",
		Subject:  "Welcome!",
		Content:  "Hi {{ username }}",
		Audience: "new",
	})
	if err != nil {
		t.Fatal(err)
	}

	if n.TotalRecipients != 3 {
		t.Errorf("expected 3 recipients, got %d", n.TotalRecipients)
	}

	// Repeated materialization must not add duplicate rows.
	total, err := env.svc.MaterializeRecipients(n)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("expected 3 recipients after re-materialize, got %d", total)
	}
}

func TestSendRejectsNonDraft(t *testing.T) {
	env := newTestEnv(testUsers())

	n := &model.Newsletter{Title: "Done", Subject: "s", Audience: model.AudienceAll, Status: model.StatusSent}
	env.newsletterRepo.Create(n)

	_, err := env.svc.Send(context.Background(), n.ID)
	if !appErrors.IsInvalidState(err) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent || after.SentCount != 0 || after.FailedCount != 0 {
		t.Error("send on non-draft must not mutate status or counters")
	}
}

func TestSendWithEmptyLedgerFinalizesZero(t *testing.T) {
	env := newTestEnv(testUsers())

	n := &model.Newsletter{Title: "Empty", Subject: "s", Audience: model.AudienceAll, Status: model.StatusDraft}
	env.newsletterRepo.Create(n)

	sent, err := env.svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 {
		t.Errorf("expected 0 sent, got %d", sent)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent {
		t.Errorf("expected status sent, got %s", after.Status)
	}
	if after.SentAt == nil {
		t.Error("sent_at should be set")
	}
	if after.SentCount != 0 || after.FailedCount != 0 {
		t.Error("counters should stay zero")
	}
}

func TestSendPartialFailure(t *testing.T) {
	env := newTestEnv(testUsers())
	env.mailer.failFor["bob@example.com"] = "mailbox on fire"

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Welcome",
		Subject:  "Welcome!",
		Content:  "Hi {{ username }}",
		Audience: "new",
	})
	if err != nil {
		t.Fatal(err)
	}

	sent, err := env.svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 2 {
		t.Errorf("expected 2 sent, got %d", sent)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent {
		t.Errorf("expected status sent, got %s", after.Status)
	}
	if after.SentCount != 2 || after.FailedCount != 1 {
		t.Errorf("expected counters 2/1, got %d/%d", after.SentCount, after.FailedCount)
	}

	counts, _ := env.recipientRepo.StatusCounts(n.ID)
	if counts[model.RecipientPending] != 0 {
		t.Error("no recipient should remain pending after a send")
	}

	// The failing row must carry the captured error text.
	found := false
	for _, r := range env.recipientRepo.recipients {
		if r.NewsletterID == n.ID && r.Status == model.RecipientFailed {
			found = true
			if r.ErrorMessage == "" {
				t.Error("failed recipient should hold a non-empty error message")
			}
		}
	}
	if !found {
		t.Error("expected one failed recipient")
	}

	// Rendered bodies are personalized per recipient.
	for _, msg := range env.mailer.sent {
		if !strings.Contains(msg.HTML, "Hi ") {
			t.Errorf("unexpected rendered body: %q", msg.HTML)
		}
	}
}

func TestSendRollsBackOnLedgerFailure(t *testing.T) {
	env := newTestEnv(testUsers())
	env.recipientRepo.failListPending = true

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Doomed",
		Subject:  "s",
		Audience: "all",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.svc.Send(context.Background(), n.ID)
	if err == nil {
		t.Fatal("expected dispatch error to propagate")
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusDraft {
		t.Errorf("newsletter should be rolled back to draft, got %s", after.Status)
	}
}

func TestRetryAfterRollbackKeepsLedgerCounts(t *testing.T) {
	// First attempt mails everyone and marks the ledger, then the outcome
	// aggregation fails and the newsletter rolls back to draft. The retry
	// finds no pending rows but must finalize with the counts the first
	// attempt recorded, not zeros.
	env := newTestEnv(testUsers())
	env.recipientRepo.failCountOutcomesOnce = true

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Flaky",
		Subject:  "s",
		Content:  "Hi {{ username }}",
		Audience: "new",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.svc.Send(context.Background(), n.ID); err == nil {
		t.Fatal("expected first send to fail on outcome aggregation")
	}
	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusDraft {
		t.Fatalf("expected rollback to draft, got %s", after.Status)
	}

	sent, err := env.svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 3 {
		t.Errorf("retry should report 3 sent from the ledger, got %d", sent)
	}

	after, _ = env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent {
		t.Errorf("expected status sent, got %s", after.Status)
	}
	if after.SentCount != 3 || after.FailedCount != 0 {
		t.Errorf("counters must match the ledger, got %d/%d", after.SentCount, after.FailedCount)
	}

	// Nobody is mailed twice across the two attempts.
	if len(env.mailer.sent) != 3 {
		t.Errorf("expected 3 messages total, got %d", len(env.mailer.sent))
	}
}

func TestSendRenderFailureMarksRecipientFailed(t *testing.T) {
	env := newTestEnv(testUsers())

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Broken template",
		Subject:  "s",
		Content:  "Hi {% if %}", // malformed liquid tag
		Audience: "active",
	})
	if err != nil {
		t.Fatal(err)
	}

	sent, err := env.svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 {
		t.Errorf("expected 0 sent, got %d", sent)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent {
		t.Errorf("render failures are per-recipient, newsletter should still finish as sent, got %s", after.Status)
	}
	if after.FailedCount != 2 {
		t.Errorf("expected 2 failed, got %d", after.FailedCount)
	}
}

func TestCancelKeepsDeliveredOutcomes(t *testing.T) {
	env := newTestEnv(testUsers())

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Campaign",
		Subject:  "s",
		Audience: "new",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a partially processed dispatch.
	var first int
	for id := range env.recipientRepo.recipients {
		first = id
		break
	}
	env.recipientRepo.MarkSent(first, time.Now())

	if err := env.svc.Cancel(n.ID); err != nil {
		t.Fatal(err)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", after.Status)
	}

	counts, _ := env.recipientRepo.StatusCounts(n.ID)
	if counts[model.RecipientSent] != 1 {
		t.Error("cancel must not touch rows already sent")
	}
	if counts[model.RecipientCancelled] != 2 {
		t.Errorf("expected 2 cancelled rows, got %d", counts[model.RecipientCancelled])
	}

	// Terminal states cannot be cancelled again.
	if err := env.svc.Cancel(n.ID); !appErrors.IsInvalidState(err) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}
}

func TestCancelDoesNotOverwriteConcurrentFinalize(t *testing.T) {
	env := newTestEnv(testUsers())

	n := &model.Newsletter{Title: "In flight", Subject: "s", Audience: model.AudienceAll, Status: model.StatusSending}
	env.newsletterRepo.Create(n)

	// A dispatch finalizes between the cancel request and its status write.
	env.newsletterRepo.beforeTransition = func() {
		env.newsletterRepo.newsletters[n.ID].Status = model.StatusSent
	}

	err := env.svc.Cancel(n.ID)
	if !appErrors.IsInvalidState(err) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}

	after, _ := env.newsletterRepo.GetByID(n.ID)
	if after.Status != model.StatusSent {
		t.Errorf("finalized newsletter must keep status sent, got %s", after.Status)
	}
}

func TestDuplicateProducesCleanDraft(t *testing.T) {
	env := newTestEnv(testUsers())

	n, err := env.svc.Create(service.CreateNewsletterInput{
		Title:    "Original",
		Subject:  "subj",
		Content:  "body",
		Audience: "all",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Send(context.Background(), n.ID); err != nil {
		t.Fatal(err)
	}

	dup, err := env.svc.Duplicate(n.ID)
	if err != nil {
		t.Fatal(err)
	}

	if dup.Status != model.StatusDraft {
		t.Errorf("duplicate should be draft, got %s", dup.Status)
	}
	if dup.Title != "Original (copy)" {
		t.Errorf("unexpected title %q", dup.Title)
	}
	if dup.Audience != n.Audience || dup.Subject != n.Subject || dup.Content != n.Content {
		t.Error("duplicate should carry subject, content and audience")
	}
	if dup.SentCount != 0 || dup.FailedCount != 0 || dup.TotalRecipients != 0 {
		t.Error("duplicate counters should be zero")
	}

	count, _ := env.recipientRepo.CountByNewsletter(dup.ID)
	if count != 0 {
		t.Error("duplicate should have no ledger rows until materialized")
	}
}

func TestStatsSuccessRate(t *testing.T) {
	env := newTestEnv(testUsers())

	// Empty system: rate must be exactly 0, not NaN.
	stats, err := env.svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %f", stats.SuccessRate)
	}

	n := &model.Newsletter{
		Title: "Done", Subject: "s", Audience: model.AudienceAll,
		Status: model.StatusSent, TotalRecipients: 4, SentCount: 3, FailedCount: 1,
	}
	env.newsletterRepo.Create(n)

	stats, err = env.svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.SuccessRate != 75.0 {
		t.Errorf("expected success rate 75, got %f", stats.SuccessRate)
	}
	if stats.TotalSent != 3 || stats.TotalFailed != 1 || stats.TotalRecipients != 4 {
		t.Error("stats sums mismatch")
	}
}

func TestPreviewIsBoundedAndReadOnly(t *testing.T) {
	users := []model.User{}
	for i := 1; i <= 25; i++ {
		users = append(users, model.User{
			ID: i, Username: fmt.Sprintf("user%d", i), Email: fmt.Sprintf("user%d@example.com", i),
			IsActive: true, DateJoined: daysAgo(30),
		})
	}
	env := newTestEnv(users)

	n := &model.Newsletter{Title: "Big", Subject: "s", Audience: model.AudienceAll, Status: model.StatusDraft}
	env.newsletterRepo.Create(n)

	preview, err := env.svc.Preview(n.ID)
	if err != nil {
		t.Fatal(err)
	}

	if preview.RecipientsCount != 25 {
		t.Errorf("expected live audience count 25, got %d", preview.RecipientsCount)
	}
	if len(preview.RecipientsPreview) != 10 {
		t.Errorf("preview list should cap at 10, got %d", len(preview.RecipientsPreview))
	}
	if preview.RecipientsPreview[0] != "user1 (user1@example.com)" {
		t.Errorf("unexpected preview entry %q", preview.RecipientsPreview[0])
	}

	count, _ := env.recipientRepo.CountByNewsletter(n.ID)
	if count != 0 {
		t.Error("preview must not materialize ledger rows")
	}
}

func TestCreateFromTemplate(t *testing.T) {
	env := newTestEnv(testUsers())
	tplRepo := env.svc.TemplateRepo.(*memTemplateRepo)
	tplRepo.Create(&model.NewsletterTemplate{Name: "welcome", Subject: "Hi!", Content: "Hello {{ username }}", IsActive: true})
	tplRepo.Create(&model.NewsletterTemplate{Name: "retired", Subject: "Old", Content: "", IsActive: false})

	n, err := env.svc.CreateFromTemplate(1, "all", 1)
	if err != nil {
		t.Fatal(err)
	}
	if n.Subject != "Hi!" || n.Status != model.StatusDraft {
		t.Errorf("unexpected newsletter from template: %+v", n)
	}
	if n.TotalRecipients != 5 {
		t.Errorf("expected 5 active recipients, got %d", n.TotalRecipients)
	}

	if _, err := env.svc.CreateFromTemplate(2, "all", 1); !appErrors.IsValidation(err) {
		t.Fatalf("inactive template should be rejected, got %v", err)
	}
	if _, err := env.svc.CreateFromTemplate(99, "all", 1); !appErrors.IsNotFound(err) {
		t.Fatalf("missing template should be not-found, got %v", err)
	}
}
