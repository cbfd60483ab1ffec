// Package server is the browser interface: one page with a mode menu, forms
// for each pipeline and the rendered answers.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"business-consultant/internal/config"
	"business-consultant/internal/models"
	"business-consultant/internal/router"
	"business-consultant/internal/tabular"
)

const (
	maxUploadBytes = 50 << 20
	fileField      = "files"
)

//go:embed templates/index.html
var templatesFS embed.FS

type Server struct {
	cfg      *config.Config
	router   *router.Router
	sessions *sessionStore
	tmpl     *template.Template
	markdown goldmark.Markdown
}

func New(cfg *config.Config, rt *router.Router) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		router:   rt,
		sessions: newSessionStore(cfg.Server.ScratchDir, cfg.Server.SessionTTL),
		markdown: newMarkdown(),
	}
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"markdown":    s.renderMarkdown,
		"datasetPath": datasetPath,
	}).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.tmpl = tmpl
	return s, nil
}

// Handler returns the routes of the UI.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /consult", s.handleConsult)
	mux.HandleFunc("POST /swot", s.handleSWOT)
	mux.HandleFunc("POST /documents", s.handleUpload)
	mux.HandleFunc("POST /documents/ask", s.handleAskDocuments)
	mux.HandleFunc("POST /datasets/{name}/ask", s.handleAskDataset)
	mux.HandleFunc("GET /datasets/{name}/chart", s.handleChart)
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down and removes every
// session's scratch directory.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Serving business consultant UI")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.sessions.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.closeAll()
	return err
}

// page is the data of the index template.
type page struct {
	Modes    []router.Mode
	Mode     router.Mode
	Accept   string
	Files    []string
	Datasets []*tabular.Dataset
	Outcome  *router.Outcome
	Query    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	mode, ok := router.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		mode = router.ModeWebConsultant
	}
	sess, err := s.sessions.get(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, sess, mode, nil, "")
}

func (s *Server) handleConsult(w http.ResponseWriter, r *http.Request) {
	question := r.FormValue("question")
	s.dispatch(w, r, router.Action{Mode: router.ModeWebConsultant, Question: question}, question)
}

func (s *Server) handleSWOT(w http.ResponseWriter, r *http.Request) {
	company := r.FormValue("company")
	s.dispatch(w, r, router.Action{Mode: router.ModeSWOT, Company: company}, company)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	uploads, err := readUploads(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := r.FormValue("question")
	s.dispatch(w, r, router.Action{Mode: router.ModeDocument, Uploads: uploads, Question: question}, question)
}

func (s *Server) handleAskDocuments(w http.ResponseWriter, r *http.Request) {
	question := r.FormValue("question")
	s.dispatch(w, r, router.Action{Mode: router.ModeDocument, Question: question}, question)
}

func (s *Server) handleAskDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	question := r.FormValue("question")
	s.dispatch(w, r, router.Action{
		Mode:             router.ModeDocument,
		DatasetQuestions: map[string]string{name: question},
	}, question)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ds, ok := sess.Dataset(r.PathValue("name"))
	if !ok || !ds.HasChart(s.cfg.Tabular.PlotFile) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, ds.ChartPath(s.cfg.Tabular.PlotFile))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, action router.Action, query string) {
	sess, err := s.sessions.get(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	outcome := s.router.Dispatch(r.Context(), sess, action)
	s.render(w, sess, action.Mode, outcome, query)
}

func (s *Server) render(w http.ResponseWriter, sess *router.Session, mode router.Mode, outcome *router.Outcome, query string) {
	p := page{
		Modes:    router.Modes(),
		Mode:     mode,
		Accept:   acceptList(),
		Files:    sess.Files(),
		Datasets: sess.Datasets(),
		Outcome:  outcome,
		Query:    query,
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, p); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// renderMarkdown converts model output to HTML. Raw HTML in the input is
// not passed through.
func (s *Server) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func readUploads(r *http.Request) ([]models.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var uploads []models.Upload
	for _, fh := range r.MultipartForm.File[fileField] {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, models.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func datasetPath(name string) string {
	return "/datasets/" + url.PathEscape(name)
}

func acceptList() string {
	return strings.Join(models.AcceptedExtensions(), ",")
}
