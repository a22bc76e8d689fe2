// internal/controller/newsletter_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
	"github.com/unclebandit/newsboard-backend/internal/queue"
	"github.com/unclebandit/newsboard-backend/internal/service"
)

type NewsletterController struct {
	Service   *service.NewsletterService
	Scheduler *service.SchedulerService
	Queue     queue.DispatchQueue
}

func urlID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (c *NewsletterController) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateNewsletterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	n, err := c.Service.Create(input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (c *NewsletterController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")
	audience := r.URL.Query().Get("audience")

	newsletters, pagination, err := c.Service.List(page, pageSize, status, audience)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       newsletters,
		"pagination": pagination,
	})
}

func (c *NewsletterController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	details, err := c.Service.GetWithStats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Send verifies the newsletter is a sendable draft, then enqueues the
// dispatch. The actual per-recipient loop runs off the request path.
func (c *NewsletterController) Send(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	n, err := c.Service.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if n.Status != model.StatusDraft {
		writeError(w, appErrors.NewInvalidState("send", n.Status))
		return
	}

	if err := c.Queue.EnqueueDispatch(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"newsletter_id": id,
		"status":        "queued",
	})
}

func (c *NewsletterController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	if err := c.Service.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "newsletter cancelled"})
}

func (c *NewsletterController) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	dup, err := c.Service.Duplicate(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (c *NewsletterController) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	preview, err := c.Service.Preview(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (c *NewsletterController) Recipients(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid newsletter id"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	recipients, pagination, err := c.Service.ListRecipients(id, page, pageSize, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       recipients,
		"pagination": pagination,
	})
}

func (c *NewsletterController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ProcessScheduled is the manual trigger for the scheduled-send sweep.
func (c *NewsletterController) ProcessScheduled(w http.ResponseWriter, r *http.Request) {
	processed := c.Scheduler.ProcessScheduled(r.Context(), time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "scheduled newsletters processed",
		"processed": processed,
	})
}

func (c *NewsletterController) Cleanup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Days int `json:"days"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) // empty body keeps the default
	}

	count, err := c.Scheduler.Cleanup(body.Days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "old newsletters deleted",
		"deleted_count": count,
	})
}
