package agent

import (
	"regexp"
	"strings"

	"business-consultant/internal/apperrors"
)

const (
	finalAnswerAction = "Final Answer:"

	missingActionAfterThought      = "Invalid Format: Missing 'Action:' after 'Thought:'"
	missingActionInputAfterAction  = "Invalid Format: Missing 'Action Input:' after 'Action:'"
	finalAnswerAndActionConflicted = "Parsing LLM output produced both a final answer and a parse-able action. Give either one action or the final answer, not both."
)

var (
	actionRe      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyRe  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	observationRe = regexp.MustCompile(`(?s)\n\s*Observation:.*$`)
)

// decision is what one THINKING step produced.
type decision struct {
	final  bool
	answer string
	tool   string
	input  string
}

// parseOutput reads one model completion in the ReAct grammar. Output that
// fits neither an action nor a final answer is an AgentParsing error whose
// message is fed back to the model.
func parseOutput(text string) (decision, error) {
	hasFinal := strings.Contains(text, finalAnswerAction)

	if m := actionRe.FindStringSubmatch(text); m != nil {
		if hasFinal {
			return decision{}, apperrors.AgentParsing(finalAnswerAndActionConflicted)
		}
		input := observationRe.ReplaceAllString(m[2], "")
		input = strings.Trim(strings.TrimSpace(input), `"`)
		return decision{tool: strings.TrimSpace(m[1]), input: input}, nil
	}

	if hasFinal {
		parts := strings.Split(text, finalAnswerAction)
		return decision{final: true, answer: strings.TrimSpace(parts[len(parts)-1])}, nil
	}

	if actionOnlyRe.MatchString(text) {
		return decision{}, apperrors.AgentParsing(missingActionInputAfterAction)
	}
	return decision{}, apperrors.AgentParsing(missingActionAfterThought)
}
