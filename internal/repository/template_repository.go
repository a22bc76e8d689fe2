// internal/repository/template_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
	"github.com/unclebandit/newsboard-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(t *model.NewsletterTemplate) error
	GetByID(id int) (*model.NewsletterTemplate, error)
	List() ([]*model.NewsletterTemplate, error)
	Update(t *model.NewsletterTemplate) error
	Delete(id int) error
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) Create(t *model.NewsletterTemplate) error {
	t.CreatedAt = time.Now()
	query := `
		INSERT INTO newsletter_templates (name, subject, content, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRow(query, t.Name, t.Subject, t.Content, t.IsActive, t.CreatedAt).Scan(&t.ID)
}

func (r *TemplateRepository) GetByID(id int) (*model.NewsletterTemplate, error) {
	query := `SELECT id, name, subject, content, is_active, created_at FROM newsletter_templates WHERE id=$1`
	var t model.NewsletterTemplate
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewTemplateNotFound(id)
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

func (r *TemplateRepository) List() ([]*model.NewsletterTemplate, error) {
	query := `SELECT id, name, subject, content, is_active, created_at FROM newsletter_templates ORDER BY name`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []*model.NewsletterTemplate{}
	for rows.Next() {
		t := &model.NewsletterTemplate{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Update(t *model.NewsletterTemplate) error {
	query := `UPDATE newsletter_templates SET name=$1, subject=$2, content=$3, is_active=$4 WHERE id=$5`
	res, err := r.DB.Exec(query, t.Name, t.Subject, t.Content, t.IsActive, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewTemplateNotFound(t.ID)
	}
	return nil
}

func (r *TemplateRepository) Delete(id int) error {
	res, err := r.DB.Exec(`DELETE FROM newsletter_templates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewTemplateNotFound(id)
	}
	return nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
