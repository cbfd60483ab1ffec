package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/config"
	"business-consultant/internal/helper"
	"business-consultant/internal/models"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 200  // characters
	defaultPageNumber   = 1
)

var (
	docxTextRe  = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	docxParaRe  = regexp.MustCompile(`</w:p>`)
	pptxTextRe  = regexp.MustCompile(`(?s)<a:t>(.*?)</a:t>`)
	pptxSlideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

// Parser turns uploaded non-tabular files into chunks.
type Parser struct {
	splitter textsplitter.RecursiveCharacter
}

// Result is the outcome of ingesting one upload batch. Failures holds one
// IngestionError per file that could not be loaded; the other files are
// still chunked.
type Result struct {
	Chunks   []models.Chunk
	Files    []string
	Skipped  []string
	Failures []error
}

// New returns a parser splitting with the chunk size and overlap of cfg.
func New(cfg *config.RAGConfig) *Parser {
	size, overlap := defaultChunkSize, defaultChunkOverlap
	if cfg != nil && cfg.ChunkSize > 0 && cfg.ChunkOverlap >= 0 && cfg.ChunkOverlap < cfg.ChunkSize {
		size, overlap = cfg.ChunkSize, cfg.ChunkOverlap
	}
	return &Parser{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Ingest stages each retrievable upload in stageDir, loads it and splits it.
// Tabular and unsupported files are skipped.
func (p *Parser) Ingest(uploads []models.Upload, stageDir string) Result {
	var res Result
	for _, up := range uploads {
		desc := models.Describe(up.Name)
		if !desc.Kind.Retrievable() {
			res.Skipped = append(res.Skipped, up.Name)
			continue
		}

		chunks, err := p.ingestFile(desc, up.Data, stageDir)
		if err != nil {
			log.Warn().Err(err).Str("file", up.Name).Msg("Skipping file that failed to load")
			res.Failures = append(res.Failures, apperrors.Ingestion(up.Name, err))
			continue
		}
		res.Files = append(res.Files, up.Name)
		res.Chunks = append(res.Chunks, chunks...)
	}
	log.Info().Int("files", len(res.Files)).Int("chunks", len(res.Chunks)).Int("failures", len(res.Failures)).Msg("Ingested documents")
	return res
}

func (p *Parser) ingestFile(desc models.FileDescriptor, data []byte, stageDir string) (chunks []models.Chunk, err error) {
	// third party parsers panic on some malformed files
	defer func() {
		if r := recover(); r != nil {
			chunks, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()

	path, err := helper.StageFile(stageDir, desc.Name, data)
	if err != nil {
		return nil, err
	}
	docs, err := Load(desc, path)
	if err != nil {
		return nil, err
	}
	return p.Split(docs)
}

// Load reads the file at path according to its kind.
func Load(desc models.FileDescriptor, path string) ([]models.Document, error) {
	switch desc.Kind {
	case models.KindPDF:
		return parsePDF(desc.Name, path)
	case models.KindText:
		return parseText(desc.Name, path)
	case models.KindWord:
		return parseDOCX(desc.Name, path)
	case models.KindSlides:
		return parsePPTX(desc.Name, path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", desc.Ext)
	}
}

// Split cuts documents into overlapping chunks. Documents without text yield none.
func (p *Parser) Split(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		parts, err := p.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s page %d: %w", doc.Source, doc.PageNumber, err)
		}
		n := 0
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n++
			chunks = append(chunks, models.Chunk{
				ID:         fmt.Sprintf("%s-%d-%d", doc.Source, doc.PageNumber, n),
				Source:     doc.Source,
				PageNumber: doc.PageNumber,
				ChunkID:    n,
				Content:    part,
			})
		}
	}
	return chunks, nil
}

func parsePDF(name, filePath string) ([]models.Document, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		docs = append(docs, models.Document{Source: name, PageNumber: i, Content: pageText})
	}
	return docs, nil
}

func parseText(name, filePath string) ([]models.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return []models.Document{{Source: name, PageNumber: defaultPageNumber, Content: string(data)}}, nil
}

func parseDOCX(name, filePath string) ([]models.Document, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text := paragraphsFromDocumentXML(r.Editable().GetContent())
	return []models.Document{{Source: name, PageNumber: defaultPageNumber, Content: text}}, nil
}

// paragraphsFromDocumentXML keeps the text runs of word/document.xml, one line per paragraph.
func paragraphsFromDocumentXML(content string) string {
	var out strings.Builder
	for _, para := range docxParaRe.Split(content, -1) {
		var line strings.Builder
		for _, m := range docxTextRe.FindAllStringSubmatch(para, -1) {
			line.WriteString(m[1])
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			out.WriteString(xmlEntities.Replace(s))
			out.WriteString("\n")
		}
	}
	return out.String()
}

func parsePPTX(name, filePath string) ([]models.Document, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document
	for _, file := range f.File {
		m := pptxSlideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		slideNum, _ := strconv.Atoi(m[1])
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", slideNum, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", slideNum, err)
		}
		docs = append(docs, models.Document{
			Source:     name,
			PageNumber: slideNum,
			Content:    extractTextFromXML(string(data)),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].PageNumber < docs[j].PageNumber })
	return docs, nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	for _, m := range pptxTextRe.FindAllStringSubmatch(xmlContent, -1) {
		text.WriteString(xmlEntities.Replace(m[1]))
		text.WriteString(" ")
	}
	return strings.TrimSpace(text.String())
}
