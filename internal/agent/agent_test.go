package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	lctools "github.com/tmc/langchaingo/tools"

	"business-consultant/internal/tools"
)

// scriptedModel replies with outputs in order and repeats the last one.
type scriptedModel struct {
	outputs []string
	prompts []string
	err     error
}

func (m *scriptedModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	var sb strings.Builder
	for _, msg := range msgs {
		for _, p := range msg.Parts {
			if tp, ok := p.(llms.TextContent); ok {
				sb.WriteString(tp.Text)
			}
		}
	}
	m.prompts = append(m.prompts, sb.String())

	i := len(m.prompts) - 1
	if i >= len(m.outputs) {
		i = len(m.outputs) - 1
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.outputs[i]}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type fakeTool struct {
	name  string
	out   string
	err   error
	calls []string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Call(_ context.Context, input string) (string, error) {
	f.calls = append(f.calls, input)
	return f.out, f.err
}

func newToolbox(t *testing.T, ts ...*fakeTool) *tools.Toolbox {
	t.Helper()
	lc := make([]lctools.Tool, len(ts))
	for i, tool := range ts {
		lc[i] = tool
	}
	box, err := tools.NewToolbox(lc...)
	require.NoError(t, err)
	return box
}

func TestRunFinalAnswerImmediately(t *testing.T) {
	model := &scriptedModel{outputs: []string{" I know this.\nFinal Answer: 42"}}
	a := New(model, newToolbox(t, &fakeTool{name: "web_search"}))

	res, err := a.Run(context.Background(), "meaning of life")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer)
	assert.Empty(t, res.Steps)
	assert.Equal(t, 1, res.Iterations)
	assert.Contains(t, model.prompts[0], "Question: meaning of life")
	assert.Contains(t, model.prompts[0], "web_search: fake web_search")
}

func TestRunUsesToolThenAnswers(t *testing.T) {
	search := &fakeTool{name: "web_search", out: "Acme makes anvils"}
	model := &scriptedModel{outputs: []string{
		" I should search.\nAction: web_search\nAction Input: \"acme corp\"",
		" I now know the final answer\nFinal Answer: Acme makes anvils.",
	}}

	var transitions []string
	a := New(model, newToolbox(t, search), WithTransitionHook(func(from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	}))

	res, err := a.Run(context.Background(), "what does acme do")
	require.NoError(t, err)
	assert.Equal(t, "Acme makes anvils.", res.Answer)
	assert.Equal(t, []string{"acme corp"}, search.calls)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "web_search", res.Steps[0].Tool)
	assert.Equal(t, "Acme makes anvils", res.Steps[0].Observation)
	assert.Equal(t, []string{
		"THINKING>ACTING", "ACTING>OBSERVING", "OBSERVING>THINKING", "THINKING>DONE",
	}, transitions)

	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[1], "Action Input: \"acme corp\"\nObservation: Acme makes anvils\nThought:")
}

func TestRunTerminatesWhenEveryToolFails(t *testing.T) {
	search := &fakeTool{name: "web_search", err: errors.New("quota exceeded")}
	model := &scriptedModel{outputs: []string{"Action: web_search\nAction Input: acme"}}

	a := New(model, newToolbox(t, search), WithMaxIterations(3))
	res, err := a.Run(context.Background(), "acme")
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, 3, res.Iterations)
	require.Len(t, res.Steps, 3)
	for _, s := range res.Steps {
		assert.True(t, strings.HasPrefix(s.Observation, "Error:"), s.Observation)
	}
	assert.Len(t, search.calls, 3)
}

func TestRunFeedsParseErrorBack(t *testing.T) {
	model := &scriptedModel{outputs: []string{
		"I am not sure what to do.",
		"Final Answer: fine",
	}}
	a := New(model, newToolbox(t, &fakeTool{name: "web_search"}))

	res, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Answer)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, exceptionTool, res.Steps[0].Tool)
	assert.Equal(t, missingActionAfterThought, res.Steps[0].Observation)
	assert.Contains(t, model.prompts[1], "Observation: "+missingActionAfterThought)
}

func TestRunUnknownToolIsObservation(t *testing.T) {
	model := &scriptedModel{outputs: []string{
		"Action: calculator\nAction Input: 2+2",
		"Final Answer: 4",
	}}
	a := New(model, newToolbox(t, &fakeTool{name: "web_search"}))

	res, err := a.Run(context.Background(), "2+2")
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "Error: calculator is not a valid tool, try one of [web_search].", res.Steps[0].Observation)
}

func TestRunModelErrorIsTerminal(t *testing.T) {
	model := &scriptedModel{err: errors.New("503")}
	a := New(model, newToolbox(t))

	_, err := a.Run(context.Background(), "q")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMaxIterations)
	assert.ErrorContains(t, err, "503")
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := &scriptedModel{outputs: []string{"Final Answer: x"}}

	_, err := New(model, newToolbox(t)).Run(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, model.prompts)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "THINKING", StateThinking.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
