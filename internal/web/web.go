// Package web serves the server-rendered declaration form and listing pages.
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

//go:embed templates/*.html static/*
var assets embed.FS

// DefaultTools are offered as checkboxes on the form page.
var DefaultTools = []string{"ChatGPT", "Claude", "Gemini", "GitHub Copilot", "Grammarly", "Perplexity", "QuillBot", "DeepL"}

type groupLister interface {
	Groups(ctx context.Context) ([]models.DeclarationGroup, error)
}

// Options tune what the pages advertise to the browser.
type Options struct {
	APIPrefix     string
	MaxUploadSize int64
	Tools         []string
}

// Pages renders the HTML views.
type Pages struct {
	declarations groupLister
	logger       *zap.Logger
	opts         Options
}

// NewPages constructs the page handlers.
func NewPages(declarations groupLister, logger *zap.Logger, opts Options) *Pages {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 5 * 1024 * 1024
	}
	if len(opts.Tools) == 0 {
		opts.Tools = DefaultTools
	}
	return &Pages{declarations: declarations, logger: logger, opts: opts}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Local().Format("02 Jan 2006 15:04") },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}).ParseFS(assets, "templates/*.html")
}

// Register installs templates, static assets and page routes on the engine.
func (p *Pages) Register(r *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return err
	}
	r.StaticFileFS("/static/app.js", "app.js", http.FS(static))
	r.StaticFileFS("/static/style.css", "style.css", http.FS(static))

	r.GET("/", p.Form)
	r.GET("/declarations", p.Listing)
	return nil
}

// Form renders the submission page.
func (p *Pages) Form(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Title":         "Declare AI usage",
		"Tools":         p.opts.Tools,
		"APIPrefix":     p.opts.APIPrefix,
		"MaxUploadSize": p.opts.MaxUploadSize,
	})
}

// Listing renders every submission as a card. A failed fetch renders the page
// with the error and a retry link instead of the cards.
func (p *Pages) Listing(c *gin.Context) {
	groups, err := p.declarations.Groups(c.Request.Context())
	if err != nil {
		appErr := appErrors.FromError(err)
		p.logger.Warn("listing page fetch failed", zap.Error(err))
		c.HTML(appErr.Status, "declarations.html", gin.H{
			"Title": "Declarations",
			"Error": appErr.Message,
		})
		return
	}
	c.HTML(http.StatusOK, "declarations.html", gin.H{
		"Title":  "Declarations",
		"Groups": groups,
	})
}
