package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"farrelnajib/ai-hiring/internal/models"
)

const snippetLength = 200

// Embedder turns text into a dense vector. Satisfied by GeminiService.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CandidateIndexService maintains a vector index of evaluated resumes so
// recruiters can search candidates by free-text job descriptions. Indexing is
// best effort; evaluation never fails because the index is down.
type CandidateIndexService interface {
	InitCollection() error
	IndexCandidate(ctx context.Context, applicationID uuid.UUID, resumeText string) error
	SearchByJobDescription(ctx context.Context, description string, limit int) ([]models.SimilarCandidateResponse, error)
	RemoveCandidate(ctx context.Context, applicationID uuid.UUID) error
}

type candidateIndexService struct {
	client         *qdrant.Client
	embedder       Embedder
	collectionName string
	vectorSize     uint64
}

func NewCandidateIndexService(urlStr, apiKey, collectionName string, embedder Embedder) (CandidateIndexService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &candidateIndexService{
		client:         client,
		embedder:       embedder,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004 size
	}, nil
}

// InitCollection implements CandidateIndexService.
func (c *candidateIndexService) InitCollection() error {
	ctx := context.Background()

	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Candidate collection already exists")
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     c.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})

	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", c.collectionName)
	return nil
}

// IndexCandidate implements CandidateIndexService. The point is keyed by the
// application id so re-indexing the same application overwrites its vector.
func (c *candidateIndexService) IndexCandidate(ctx context.Context, applicationID uuid.UUID, resumeText string) error {
	embedding, err := c.embedder.GenerateEmbedding(ctx, resumeText)
	if err != nil {
		return fmt.Errorf("failed to embed resume: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(applicationID.ID())),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"application_id": applicationID.String(),
			"snippet":        snippet(resumeText),
		}),
	}

	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert candidate: %w", err)
	}

	return nil
}

// SearchByJobDescription implements CandidateIndexService.
func (c *candidateIndexService) SearchByJobDescription(ctx context.Context, description string, limit int) ([]models.SimilarCandidateResponse, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("job description is empty")
	}

	embedding, err := c.embedder.GenerateEmbedding(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("failed to embed job description: %w", err)
	}

	searchResult, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	var results []models.SimilarCandidateResponse
	for _, point := range searchResult {
		payload := point.Payload

		result := models.SimilarCandidateResponse{
			Score: point.Score,
		}

		if appID, ok := payload["application_id"]; ok {
			if val, ok := appID.GetKind().(*qdrant.Value_StringValue); ok {
				result.ApplicationID = val.StringValue
			}
		}

		if snip, ok := payload["snippet"]; ok {
			if val, ok := snip.GetKind().(*qdrant.Value_StringValue); ok {
				result.Snippet = val.StringValue
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// RemoveCandidate implements CandidateIndexService.
func (c *candidateIndexService) RemoveCandidate(ctx context.Context, applicationID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("application_id", applicationID.String()),
		},
	}

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to remove candidate: %w", err)
	}

	return nil
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength]
}
