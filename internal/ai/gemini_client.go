package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
)

// GeminiClient wraps the Gemini SDK with a circuit breaker and per-concern
// rate limiters. Embedding traffic is far heavier than generation (one call
// per chunk), so each gets its own limiter.
type GeminiClient struct {
	client          *genai.Client
	breaker         *gobreaker.CircuitBreaker
	embedLimiter    *rate.Limiter
	genLimiter      *rate.Limiter
	embeddingModel  string
	generationModel string
}

func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiClient{
		client:          client,
		breaker:         breaker,
		embedLimiter:    newRPMLimiter(cfg.EmbeddingRPM),
		genLimiter:      newRPMLimiter(cfg.GenerationRPM),
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
	}, nil
}

// newRPMLimiter converts a requests-per-minute budget into a limiter with a
// 10% safety margin.
func newRPMLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		rpm = 10
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), burst)
}

// Embed returns the embedding vector for one chunk of text. Safe to call
// repeatedly for the same text; retries are the caller's concern.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", gc.embeddingModel),
		attribute.Int("gemini.text_len", len(text)),
	)

	if err := gc.embedLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return nil, fmt.Errorf("embedding service unavailable: %w", err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.([]float32), nil
}

// GenerateAnswer produces a grounded answer from retrieved context chunks.
// The prompt instructs the model to answer in the question's language, which
// matters for mixed Hebrew/English corpora.
func (gc *GeminiClient) GenerateAnswer(ctx context.Context, question string, contextChunks []string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", gc.generationModel),
		attribute.Int("gemini.context_chunks", len(contextChunks)),
	)

	if err := gc.genLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.generationModel)
		model.SetTemperature(0.3)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(buildGroundedPrompt(question, contextChunks)))
		if err != nil {
			return nil, err
		}
		return responseText(resp), nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "The service is experiencing high demand right now. Please try again in a moment.", nil
		}
		return "", err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.(string), nil
}

func buildGroundedPrompt(question string, contextChunks []string) string {
	if len(contextChunks) == 0 {
		return question
	}

	contextStr := ""
	for i, chunk := range contextChunks {
		contextStr += fmt.Sprintf("Context %d:\n%s\n\n", i+1, chunk)
	}

	return fmt.Sprintf(
		"You are answering questions about uploaded documents. Use ONLY the following context. "+
			"If the answer is not in the context, say so. Answer in the same language as the question "+
			"(Hebrew questions get Hebrew answers).\n\n%s\nQuestion: %s", contextStr, question)
}

func responseText(resp *genai.GenerateContentResponse) string {
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
