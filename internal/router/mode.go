package router

import "strings"

// Mode selects the pipeline that handles an action.
type Mode int

const (
	ModeWebConsultant Mode = iota
	ModeSWOT
	ModeDocument
)

func (m Mode) String() string {
	switch m {
	case ModeWebConsultant:
		return "consult"
	case ModeSWOT:
		return "swot"
	case ModeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Title is the label shown in the UI.
func (m Mode) Title() string {
	switch m {
	case ModeWebConsultant:
		return "General Web Consultant"
	case ModeSWOT:
		return "SWOT Analysis"
	case ModeDocument:
		return "Document Analysis"
	default:
		return ""
	}
}

// Modes lists every mode in menu order.
func Modes() []Mode {
	return []Mode{ModeWebConsultant, ModeSWOT, ModeDocument}
}

// ParseMode accepts the names printed by String.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "consult", "consultant", "web":
		return ModeWebConsultant, true
	case "swot":
		return ModeSWOT, true
	case "document", "documents", "doc":
		return ModeDocument, true
	default:
		return 0, false
	}
}
