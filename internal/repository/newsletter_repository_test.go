package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
)

func TestNewsletterCreateAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	mock.ExpectQuery("INSERT INTO newsletters").
		WithArgs("Title", "Subject", "Body", "draft", "all", 1, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	n := &model.Newsletter{Title: "Title", Subject: "Subject", Content: "Body", Audience: model.AudienceAll, CreatedBy: 1}
	require.NoError(t, repo.Create(n))

	assert.Equal(t, 7, n.ID)
	assert.Equal(t, model.StatusDraft, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsletterGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	mock.ExpectQuery("FROM newsletters WHERE id=").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(99)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestTransitionStatusGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	// Row in the expected source status: transition succeeds.
	mock.ExpectExec("UPDATE newsletters SET status=").
		WithArgs(model.StatusSending, 1, model.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.TransitionStatus(1, model.StatusDraft, model.StatusSending)
	require.NoError(t, err)
	assert.True(t, moved)

	// Status changed underneath us: zero rows affected, no transition.
	mock.ExpectExec("UPDATE newsletters SET status=").
		WithArgs(model.StatusSending, 1, model.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err = repo.TransitionStatus(1, model.StatusDraft, model.StatusSending)
	require.NoError(t, err)
	assert.False(t, moved)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThanReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	cutoff := time.Now().AddDate(0, 0, -30)
	mock.ExpectExec("DELETE FROM newsletters WHERE status IN").
		WithArgs(model.StatusSent, model.StatusCancelled, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListScheduledDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	now := time.Now()
	scheduled := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "title", "subject", "content", "status", "audience", "created_by",
		"created_at", "scheduled_at", "sent_at", "total_recipients", "sent_count", "failed_count",
	}).AddRow(1, "Due", "s", "body", "draft", "all", 1, now.Add(-24*time.Hour), scheduled, nil, 0, 0, 0)

	mock.ExpectQuery("FROM newsletters").
		WithArgs(model.StatusDraft, now).
		WillReturnRows(rows)

	due, err := repo.ListScheduledDue(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Due", due[0].Title)
	require.NotNil(t, due[0].ScheduledAt)
}

func TestGetStatsScansAggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &NewsletterRepository{DB: db}

	rows := sqlmock.NewRows([]string{
		"count", "draft", "sending", "sent", "cancelled", "recipients", "total_sent", "total_failed",
	}).AddRow(10, 4, 1, 3, 2, 500, 450, 30)

	mock.ExpectQuery("FROM newsletters").WillReturnRows(rows)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalNewsletters)
	assert.Equal(t, 4, stats.DraftCount)
	assert.Equal(t, 3, stats.SentCount)
	assert.Equal(t, 450, stats.TotalSent)
	assert.Equal(t, 30, stats.TotalFailed)
}
