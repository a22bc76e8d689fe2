// internal/controller/template_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
	"github.com/unclebandit/newsboard-backend/internal/repository"
	"github.com/unclebandit/newsboard-backend/internal/service"
)

type TemplateController struct {
	Repo    repository.TemplateRepositoryInterface
	Service *service.NewsletterService
}

type templatePayload struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active"`
}

func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	var body templatePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}
	if body.Name == "" || body.Subject == "" {
		writeError(w, appErrors.NewValidation("name and subject are required"))
		return
	}

	tpl := &model.NewsletterTemplate{
		Name:     body.Name,
		Subject:  body.Subject,
		Content:  body.Content,
		IsActive: true,
	}
	if body.IsActive != nil {
		tpl.IsActive = *body.IsActive
	}

	if err := c.Repo.Create(tpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	templates, err := c.Repo.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (c *TemplateController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid template id"))
		return
	}

	tpl, err := c.Repo.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (c *TemplateController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid template id"))
		return
	}

	tpl, err := c.Repo.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var body templatePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	if body.Name != "" {
		tpl.Name = body.Name
	}
	if body.Subject != "" {
		tpl.Subject = body.Subject
	}
	if body.Content != "" {
		tpl.Content = body.Content
	}
	if body.IsActive != nil {
		tpl.IsActive = *body.IsActive
	}

	if err := c.Repo.Update(tpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (c *TemplateController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid template id"))
		return
	}

	if err := c.Repo.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "template deleted"})
}

// Use creates a draft newsletter from the template.
func (c *TemplateController) Use(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid template id"))
		return
	}

	var body struct {
		Audience  string `json:"audience"`
		CreatedBy int    `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	n, err := c.Service.CreateFromTemplate(id, body.Audience, body.CreatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
