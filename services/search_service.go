package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hebrew-rag-platform/internal/ai"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// ErrNoRelevantChunks is returned when vector search finds nothing to
// ground an answer on.
var ErrNoRelevantChunks = errors.New("no relevant content found")

const defaultTopK = 5

// SearchService answers questions by retrieving the closest stored chunks
// and grounding the generation model on them.
type SearchService struct {
	gemini *ai.GeminiClient
	store  *VectorStore
}

func NewSearchService(gemini *ai.GeminiClient, store *VectorStore) *SearchService {
	return &SearchService{gemini: gemini, store: store}
}

// Ask embeds the question, retrieves the top-k chunks, and generates a
// grounded answer. An empty DocumentID searches across all of the caller's
// reachable chunks.
func (s *SearchService) Ask(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	var documentID *primitive.ObjectID
	if req.DocumentID != "" {
		id, err := primitive.ObjectIDFromHex(req.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("invalid document id: %w", err)
		}
		documentID = &id
	}

	queryVec, err := s.gemini.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := s.store.Search(ctx, queryVec, documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoRelevantChunks
	}

	contextChunks := make([]string, 0, len(hits))
	for _, hit := range hits {
		contextChunks = append(contextChunks, hit.Content)
	}

	answer, err := s.gemini.GenerateAnswer(ctx, req.Question, contextChunks)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	logger.Debug("query answered",
		"sources", len(hits),
		"top_similarity", hits[0].Similarity)

	return &models.QueryResponse{
		Answer:  answer,
		Sources: hits,
	}, nil
}
