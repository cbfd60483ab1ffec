// Package agent runs the tool augmented reasoning loop as an explicit state
// machine: THINKING -> ACTING -> OBSERVING -> THINKING ... -> DONE.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/llmservice"
	"business-consultant/internal/prompt"
	"business-consultant/internal/tools"
)

// State is a node of the reasoning loop.
type State int

const (
	StateThinking State = iota
	StateActing
	StateObserving
	StateDone
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "THINKING"
	case StateActing:
		return "ACTING"
	case StateObserving:
		return "OBSERVING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

const (
	DefaultMaxIterations = 15

	// exceptionTool names the step recorded for unparsable model output.
	exceptionTool = "_Exception"
)

// ErrMaxIterations is returned when the loop hits its iteration ceiling.
var ErrMaxIterations = errors.New("agent stopped due to iteration limit")

var defaultStopWords = []string{"\nObservation:", "\n\tObservation:"}

// Step is one tool invocation: what the model asked for and what it saw.
type Step struct {
	Tool        string
	Input       string
	Observation string
	// Log is the raw model output that led to this step.
	Log string
}

// Result is the outcome of one Run.
type Result struct {
	Answer     string
	Steps      []Step
	Iterations int
}

// Agent is a ReAct loop over a fixed toolbox.
type Agent struct {
	model         llms.Model
	toolbox       *tools.Toolbox
	maxIterations int
	stopWords     []string
	callOptions   []llms.CallOption
	onTransition  func(from, to State)
}

type Option func(*Agent)

// WithMaxIterations bounds the number of THINKING steps.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithStopWords replaces the sequences that end a model turn.
func WithStopWords(words ...string) Option {
	return func(a *Agent) {
		if len(words) > 0 {
			a.stopWords = words
		}
	}
}

// WithCallOptions adds options to every model call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(a *Agent) {
		a.callOptions = append(a.callOptions, opts...)
	}
}

// WithTransitionHook observes every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(a *Agent) {
		a.onTransition = fn
	}
}

func New(model llms.Model, toolbox *tools.Toolbox, opts ...Option) *Agent {
	a := &Agent{model: model, toolbox: toolbox, maxIterations: DefaultMaxIterations, stopWords: defaultStopWords}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run drives the loop for task until the model gives a final answer, the
// iteration ceiling is reached, the model call fails or ctx is done.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	log.Debug().Interface("tools", a.toolbox.Names()).Msg("Starting agent")
	res := &Result{}
	state := StateThinking
	var pending Step

	transition := func(to State) {
		if a.onTransition != nil {
			a.onTransition(state, to)
		}
		state = to
	}

	for {
		switch state {
		case StateThinking:
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if res.Iterations >= a.maxIterations {
				log.Warn().Int("iterations", res.Iterations).Msg("Agent reached iteration limit")
				return res, fmt.Errorf("%w (%d)", ErrMaxIterations, a.maxIterations)
			}
			res.Iterations++

			output, err := a.think(ctx, task, res.Steps)
			if err != nil {
				return res, fmt.Errorf("agent model call failed: %w", err)
			}

			d, err := parseOutput(output)
			switch {
			case err != nil:
				log.Debug().Err(err).Msg("Could not parse model output")
				pending = Step{Tool: exceptionTool, Input: output, Observation: correction(err), Log: output}
				transition(StateObserving)
			case d.final:
				res.Answer = d.answer
				transition(StateDone)
			default:
				pending = Step{Tool: d.tool, Input: d.input, Log: output}
				transition(StateActing)
			}

		case StateActing:
			pending.Observation = a.toolbox.Execute(ctx, pending.Tool, pending.Input)
			transition(StateObserving)

		case StateObserving:
			res.Steps = append(res.Steps, pending)
			pending = Step{}
			transition(StateThinking)

		case StateDone:
			log.Info().Int("iterations", res.Iterations).Int("steps", len(res.Steps)).Msg("Agent finished")
			return res, nil
		}
	}
}

func (a *Agent) think(ctx context.Context, task string, steps []Step) (string, error) {
	p := prompt.ReAct(a.toolbox.Specs(), task, scratchpad(steps))
	opts := append([]llms.CallOption{llms.WithStopWords(a.stopWords)}, a.callOptions...)
	return llmservice.GenerateContent(ctx, a.model, p, opts...)
}

// correction is the observation shown to the model after unparsable output.
func correction(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// scratchpad replays previous steps in the ReAct transcript format.
func scratchpad(steps []Step) string {
	var sb strings.Builder
	for _, s := range steps {
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(s.Log))
		sb.WriteString("\nObservation: ")
		sb.WriteString(s.Observation)
		sb.WriteString("\nThought:")
	}
	return sb.String()
}
