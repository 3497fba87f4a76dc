package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// VectorStore persists embedded chunks in the doc_chunks collection and
// serves similarity search. With Atlas vector search enabled it runs a
// $vectorSearch aggregation; otherwise it scores cosine similarity in
// process, which is fine for single-document question answering.
type VectorStore struct {
	chunks        *mongo.Collection
	indexName     string
	vectorEnabled bool
}

func NewVectorStore(db *mongo.Database, cfg *config.Config) *VectorStore {
	return &VectorStore{
		chunks:        db.Collection("doc_chunks"),
		indexName:     cfg.VectorIndexName,
		vectorEnabled: cfg.VectorSearchEnabled,
	}
}

// InsertChunk upserts one embedded chunk keyed by document and position, so
// an ingestion retry never duplicates a row.
func (vs *VectorStore) InsertChunk(ctx context.Context, documentID *primitive.ObjectID, chunk models.Chunk, embedding []float32) error {
	row := models.StoredChunk{
		DocumentID:  documentID,
		Content:     chunk.Text,
		ContentHash: HashChunkContent(chunk.Text),
		Embedding:   embedding,
		Meta:        chunk.Meta,
		CreatedAt:   time.Now(),
	}

	filter := bson.M{
		"document_id":        documentID,
		"meta.sequential_id": chunk.Meta.SequentialID,
	}
	update := bson.M{"$set": bson.M{
		"document_id":  row.DocumentID,
		"content":      row.Content,
		"content_hash": row.ContentHash,
		"embedding":    row.Embedding,
		"meta":         row.Meta,
		"created_at":   row.CreatedAt,
	}}

	opts := options.Update().SetUpsert(true)
	if _, err := vs.chunks.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("chunk upsert failed: %w", err)
	}
	return nil
}

// Search returns the topK most similar chunks, optionally scoped to one
// document.
func (vs *VectorStore) Search(ctx context.Context, queryVec []float32, documentID *primitive.ObjectID, topK int) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	if vs.vectorEnabled {
		return vs.searchAtlas(ctx, queryVec, documentID, topK)
	}
	return vs.searchInProcess(ctx, queryVec, documentID, topK)
}

func (vs *VectorStore) searchAtlas(ctx context.Context, queryVec []float32, documentID *primitive.ObjectID, topK int) ([]models.RetrievedChunk, error) {
	search := bson.M{
		"index":         vs.indexName,
		"path":          "embedding",
		"queryVector":   queryVec,
		"numCandidates": topK * 10,
		"limit":         topK,
	}
	if documentID != nil {
		search["filter"] = bson.M{"document_id": *documentID}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$project", Value: bson.M{
			"content":    1,
			"meta":       1,
			"similarity": bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := vs.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.RetrievedChunk
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("vector search decode failed: %w", err)
	}
	return results, nil
}

// searchInProcess loads candidate rows and ranks them by cosine similarity.
func (vs *VectorStore) searchInProcess(ctx context.Context, queryVec []float32, documentID *primitive.ObjectID, topK int) ([]models.RetrievedChunk, error) {
	filter := bson.M{}
	if documentID != nil {
		filter["document_id"] = *documentID
	}

	cursor, err := vs.chunks.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}
	defer cursor.Close(ctx)

	var scored []models.RetrievedChunk
	for cursor.Next(ctx) {
		var row models.StoredChunk
		if err := cursor.Decode(&row); err != nil {
			logger.Warn("skipping undecodable chunk row", "error", err.Error())
			continue
		}
		scored = append(scored, models.RetrievedChunk{
			Content:    row.Content,
			Meta:       row.Meta,
			Similarity: cosineSimilarity(queryVec, row.Embedding),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// DeleteByDocument removes all chunk rows for a document. Used both for
// user-initiated deletes and for rollback of failed ingestions.
func (vs *VectorStore) DeleteByDocument(ctx context.Context, documentID primitive.ObjectID) (int64, error) {
	res, err := vs.chunks.DeleteMany(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return 0, fmt.Errorf("chunk delete failed: %w", err)
	}
	return res.DeletedCount, nil
}

// CountByDocument reports the number of stored chunks for a document.
func (vs *VectorStore) CountByDocument(ctx context.Context, documentID primitive.ObjectID) (int64, error) {
	return vs.chunks.CountDocuments(ctx, bson.M{"document_id": documentID})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
