// Package tools holds the fixed set of tools the agent may call.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	lctools "github.com/tmc/langchaingo/tools"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/prompt"
)

// Name is the tag of a tool. The set is closed.
type Name string

const (
	WebSearch     Name = "web_search"
	ScrapeWebsite Name = "scrape_website"
	PythonREPL    Name = "python_repl_tool"
)

var knownNames = []Name{WebSearch, ScrapeWebsite, PythonREPL}

// ParseName resolves the tool named by model output.
func ParseName(s string) (Name, bool) {
	s = strings.Trim(strings.TrimSpace(s), "`'\"[]")
	for _, n := range knownNames {
		if strings.EqualFold(s, string(n)) {
			return n, true
		}
	}
	return "", false
}

// Toolbox maps every tag it holds to exactly one handler.
type Toolbox struct {
	handlers map[Name]lctools.Tool
	order    []Name
}

// NewToolbox checks that every tool has a known, unique name.
func NewToolbox(ts ...lctools.Tool) (*Toolbox, error) {
	b := &Toolbox{handlers: make(map[Name]lctools.Tool, len(ts))}
	for _, t := range ts {
		n, ok := ParseName(t.Name())
		if !ok || string(n) != t.Name() {
			return nil, fmt.Errorf("unknown tool %q", t.Name())
		}
		if _, dup := b.handlers[n]; dup {
			return nil, fmt.Errorf("duplicate tool %q", n)
		}
		b.handlers[n] = t
		b.order = append(b.order, n)
	}
	return b, nil
}

// Names lists the tools in registration order.
func (b *Toolbox) Names() []Name {
	return append([]Name(nil), b.order...)
}

// Specs describes the tools for the agent prompt.
func (b *Toolbox) Specs() []prompt.ToolSpec {
	specs := make([]prompt.ToolSpec, len(b.order))
	for i, n := range b.order {
		specs[i] = prompt.ToolSpec{Name: string(n), Description: b.handlers[n].Description()}
	}
	return specs
}

// Execute runs the named tool and returns its observation. Failures become
// observation text prefixed with "Error:" so the reasoning loop can adapt.
func (b *Toolbox) Execute(ctx context.Context, name, input string) (observation string) {
	n, ok := ParseName(name)
	handler := b.handlers[n]
	if !ok || handler == nil {
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].", strings.TrimSpace(name), b.joinedNames())
	}

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.ToolExecution(string(n), fmt.Errorf("panic: %v", r))
			log.Error().Err(err).Msg("Tool panicked")
			observation = "Error: " + err.Error()
		}
	}()

	log.Debug().Str("tool", string(n)).Str("input", input).Msg("Calling tool")
	out, err := handler.Call(ctx, input)
	if err != nil {
		err = apperrors.ToolExecution(string(n), err)
		log.Warn().Err(err).Msg("Tool failed")
		return "Error: " + err.Error()
	}
	return out
}

func (b *Toolbox) joinedNames() string {
	names := make([]string, len(b.order))
	for i, n := range b.order {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}
