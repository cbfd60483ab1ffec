package models

// Chunk is a bounded span of document text prepared for similarity search.
type Chunk struct {
	ID         string
	Source     string
	PageNumber int
	ChunkID    int
	Content    string
}

// Document is one raw unit produced by a loader before splitting. PDF files yield
// one Document per page.
type Document struct {
	Source     string
	PageNumber int
	Content    string
}

// Upload is a user supplied file blob.
type Upload struct {
	Name string
	Data []byte
}

// Source names the origin of a retrieved chunk.
type Source struct {
	Filename   string
	PageNumber int
}

// PromptResponse is what a pipeline returns to the caller.
type PromptResponse struct {
	Query   string
	Sources []Source
	Content string
	// ChartPath is set when a tabular run produced a chart image.
	ChartPath string
}
