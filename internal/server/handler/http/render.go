package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/studymate/studymate/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// GenericError is shown whenever storage or another dependency fails.
const GenericError = "Something went wrong, please try again later."

var pages = []string{
	"login.html",
	"register.html",
	"forgot_password.html",
	"reset_password.html",
	"dashboard.html",
	"event_form.html",
	"calendar.html",
	"notifications.html",
	"error.html",
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
	log   *zap.Logger
}

// NewRenderer parses every page together with layout.html.
func NewRenderer(log *zap.Logger) (*Renderer, error) {
	rd := &Renderer{pages: make(map[string]*template.Template, len(pages)), log: log}
	for _, page := range pages {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		rd.pages[page] = t
	}
	return rd, nil
}

// view is the data every page receives.
type view struct {
	Title     string
	LoggedIn  bool
	Flash     *session.Flash
	CSRFField template.HTML
	Page      any
}

// Render writes page with status. The pending flash message is consumed
// here, so it is shown exactly once.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	t, ok := rd.pages[page]
	if !ok {
		rd.log.Error("unknown template", zap.String("page", page))
		http.Error(w, GenericError, http.StatusInternalServerError)
		return
	}

	s := session.FromContext(r.Context())
	flash, err := s.Flash().Consume(r.Context())
	if err != nil {
		rd.log.Error("failed to read flash", zap.Error(err))
	}

	v := view{
		Title:     title,
		LoggedIn:  s.IsLoggedIn(),
		Flash:     flash,
		CSRFField: csrf.TemplateField(r),
		Page:      data,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", v); err != nil {
		rd.log.Error("failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, GenericError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error logs err and answers with the generic error page.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	rd.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	rd.Render(w, r, http.StatusInternalServerError, "error.html", "Error", GenericError)
}

// redirectWithFlash stores a flash message and redirects with 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, log *zap.Logger, to, typ, message string) {
	if err := session.FromContext(r.Context()).Flash().Set(r.Context(), typ, message); err != nil {
		log.Error("failed to store flash", zap.Error(err))
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
