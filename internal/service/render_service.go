// internal/service/render_service.go
package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/unclebandit/newsboard-backend/internal/model"
)

// RenderService renders newsletter bodies with the Liquid template language.
// Parsed templates are cached by source text since a dispatch renders the
// same body once per recipient.
type RenderService struct {
	engine  *liquid.Engine
	siteURL string
	cache   sync.Map // map[string]*liquid.Template
}

func NewRenderService(siteURL string) *RenderService {
	engine := liquid.NewEngine()

	// Default-value filter so templates can write
	// {{ username | default: "there" }}.
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &RenderService{
		engine:  engine,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// RenderForRecipient produces the HTML body for one ledger entry.
func (s *RenderService) RenderForRecipient(n *model.Newsletter, rcpt *model.NewsletterRecipient) (string, error) {
	bindings := map[string]interface{}{
		"username":        rcpt.Username,
		"email":           rcpt.Email,
		"title":           n.Title,
		"subject":         n.Subject,
		"site_url":        s.siteURL,
		"unsubscribe_url": fmt.Sprintf("%s/unsubscribe/%d/", s.siteURL, rcpt.ID),
	}
	return s.Render(n.Content, bindings)
}

// Render parses and renders arbitrary template text.
func (s *RenderService) Render(content string, bindings map[string]interface{}) (string, error) {
	tpl, err := s.parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func (s *RenderService) parse(content string) (*liquid.Template, error) {
	if cached, ok := s.cache.Load(content); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := s.engine.ParseString(content)
	if err != nil {
		return nil, err
	}
	s.cache.Store(content, tpl)
	return tpl, nil
}
