package models

import (
	"path/filepath"
	"strings"
)

// FileKind is the capability tag of an uploaded file, resolved once at ingestion.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindPDF
	KindText
	KindWord
	KindSlides
	KindTabular
)

func (k FileKind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindText:
		return "text"
	case KindWord:
		return "docx"
	case KindSlides:
		return "pptx"
	case KindTabular:
		return "tabular"
	default:
		return "unsupported"
	}
}

// Tabular reports whether files of this kind go to the data analysis agent.
func (k FileKind) Tabular() bool { return k == KindTabular }

// Retrievable reports whether files of this kind go to the retrieval index.
func (k FileKind) Retrievable() bool {
	switch k {
	case KindPDF, KindText, KindWord, KindSlides:
		return true
	}
	return false
}

// FileDescriptor is an upload name with its resolved kind.
type FileDescriptor struct {
	Name string
	Ext  string
	Kind FileKind
}

var extensionKinds = map[string]FileKind{
	".pdf":  KindPDF,
	".txt":  KindText,
	".md":   KindText,
	".docx": KindWord,
	".pptx": KindSlides,
	".csv":  KindTabular,
	".xlsx": KindTabular,
}

// Describe resolves the kind of a file from its name.
func Describe(name string) FileDescriptor {
	ext := strings.ToLower(filepath.Ext(name))
	return FileDescriptor{Name: name, Ext: ext, Kind: extensionKinds[ext]}
}

// AcceptedExtensions lists every extension the upload form accepts.
func AcceptedExtensions() []string {
	return []string{".pdf", ".txt", ".md", ".docx", ".pptx", ".csv", ".xlsx"}
}

const (
	ContextSeparator = " "
	ThinkTag         = `(?s)<think>.*?</think>`
)
