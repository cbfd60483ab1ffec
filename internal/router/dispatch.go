package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/models"
)

// Action is one user request within a session.
type Action struct {
	Mode     Mode
	Question string
	Company  string
	// Uploads, when present, replace the document batch and add datasets.
	Uploads []models.Upload
	// DatasetQuestions maps a dataset name to the question asked about it.
	DatasetQuestions map[string]string
}

// Analysis is the answer about one dataset.
type Analysis struct {
	Dataset  string
	Response *models.PromptResponse
	Error    string
}

// Outcome is everything an action produced. Errors holds user facing messages.
type Outcome struct {
	Mode     Mode
	Response *models.PromptResponse
	Upload   *UploadReport
	Analyses []Analysis
	Errors   []string
}

// Failed reports whether the action produced any error message.
func (o *Outcome) Failed() bool {
	if len(o.Errors) > 0 {
		return true
	}
	for _, a := range o.Analyses {
		if a.Error != "" {
			return true
		}
	}
	return false
}

// Dispatch runs action on the session. It never panics: every pipeline run is
// guarded and its failure turned into a message on the outcome.
func (r *Router) Dispatch(ctx context.Context, s *Session, action Action) *Outcome {
	s.busy.Lock()
	defer s.busy.Unlock()

	out := &Outcome{Mode: action.Mode}
	log.Info().Str("session", s.ID).Str("mode", action.Mode.String()).Msg("Dispatching action")

	switch action.Mode {
	case ModeWebConsultant:
		out.fail(guard("consult", func() (err error) {
			out.Response, err = r.Consult(ctx, action.Question)
			return err
		}))

	case ModeSWOT:
		out.fail(guard("swot", func() (err error) {
			out.Response, err = r.SWOT(ctx, action.Company)
			return err
		}))

	case ModeDocument:
		r.dispatchDocuments(ctx, s, action, out)

	default:
		out.Errors = append(out.Errors, fmt.Sprintf("Unknown mode %d.", action.Mode))
	}
	return out
}

func (r *Router) dispatchDocuments(ctx context.Context, s *Session, action Action, out *Outcome) {
	if len(action.Uploads) > 0 {
		out.fail(guard("upload", func() (err error) {
			out.Upload, err = r.Upload(ctx, s, action.Uploads)
			return err
		}))
		if out.Upload != nil {
			out.Errors = append(out.Errors, out.Upload.Failures...)
		}
	}

	if action.Question != "" {
		out.fail(guard("documents", func() (err error) {
			out.Response, err = r.AskDocuments(ctx, s, action.Question)
			return err
		}))
	}

	// datasets in upload order, each with its own agent
	for _, ds := range s.Datasets() {
		q, ok := action.DatasetQuestions[ds.Name]
		if !ok {
			continue
		}
		a := Analysis{Dataset: ds.Name}
		if err := guard("dataset", func() (err error) {
			a.Response, err = r.AskDataset(ctx, s, ds.Name, q)
			return err
		}); err != nil {
			a.Error = userMessage(err)
		}
		out.Analyses = append(out.Analyses, a)
	}
	for name := range action.DatasetQuestions {
		if _, ok := s.Dataset(name); !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("No dataset named %q was uploaded.", name))
		}
	}
}

func (o *Outcome) fail(err error) {
	if err != nil {
		o.Errors = append(o.Errors, userMessage(err))
	}
}

// guard runs one pipeline. Panics and errors outside the taxonomy become
// Unhandled errors for pipeline.
func guard(pipeline string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("pipeline", pipeline).Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("Pipeline panicked")
			err = apperrors.Unhandled(pipeline, fmt.Errorf("panic: %v", rec))
		}
	}()

	err = fn()
	if err == nil {
		return nil
	}

	var in inputError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &in), errors.As(err, &appErr):
		log.Warn().Err(err).Str("pipeline", pipeline).Msg("Pipeline failed")
		return err
	default:
		log.Error().Err(err).Str("pipeline", pipeline).Msg("Pipeline failed unexpectedly")
		return apperrors.Unhandled(pipeline, err)
	}
}
