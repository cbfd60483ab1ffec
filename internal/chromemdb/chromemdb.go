package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"business-consultant/internal/embedding"
	"business-consultant/internal/models"
)

const (
	collectionName = "documents"
	seqKey         = "seq"
)

// Index is an immutable in-memory similarity index over one batch of chunks.
type Index struct {
	collection *chromem.Collection
	embedder   embeddings.Embedder
	chunks     []models.Chunk
}

// Build embeds chunks and indexes them. It returns a nil index for an empty batch.
func Build(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := embedding.EmbedChunks(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   chunk.Content,
			Metadata:  createMetadata(chunk, i),
			Embedding: vectors[i],
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	owned := make([]models.Chunk, len(chunks))
	copy(owned, chunks)
	log.Info().Int("chunks", len(owned)).Msg("Built retrieval index")
	return &Index{collection: c, embedder: embedder, chunks: owned}, nil
}

// Len is the number of indexed chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Query returns up to k chunks most similar to text, most relevant first.
// Equal similarities keep insertion order.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]models.Chunk, error) {
	if idx.Len() == 0 || k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := idx.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// rank every chunk so that ties at the cut are resolved by insertion order
	results, err := idx.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       idx.collection.Count(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	type hit struct {
		seq        int
		similarity float32
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		seq, err := strconv.Atoi(r.Metadata[seqKey])
		if err != nil || seq < 0 || seq >= len(idx.chunks) {
			return nil, fmt.Errorf("index returned unknown document %q", r.ID)
		}
		hits = append(hits, hit{seq: seq, similarity: r.Similarity})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].similarity != hits[j].similarity {
			return hits[i].similarity > hits[j].similarity
		}
		return hits[i].seq < hits[j].seq
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]models.Chunk, k)
	for i := 0; i < k; i++ {
		out[i] = idx.chunks[hits[i].seq]
	}
	return out, nil
}

func createMetadata(chunk models.Chunk, seq int) map[string]string {
	return map[string]string{
		seqKey:        strconv.Itoa(seq),
		"source":      chunk.Source,
		"page_number": strconv.Itoa(chunk.PageNumber),
		"chunk_id":    strconv.Itoa(chunk.ChunkID),
	}
}
