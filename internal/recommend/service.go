package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/llm"
	"github.com/thatonemovie/thatonemovie/internal/metrics"
)

// Broadcaster defines the interface for sending WebSocket messages.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// GeneratedEvent is broadcast after each pipeline run. It carries no user input.
type GeneratedEvent struct {
	Count   int    `json:"count"`
	Matched int    `json:"matched"`
	Source  Source `json:"source"`
}

// Service runs the recommendation pipeline: prompt, completion, parse, enrich.
type Service struct {
	completer   llm.Completer
	enricher    *Enricher
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates a recommendation service.
func NewService(completer llm.Completer, enricher *Enricher, logger zerolog.Logger) *Service {
	return &Service{
		completer: completer,
		enricher:  enricher,
		logger:    logger.With().Str("component", "recommend").Logger(),
	}
}

// SetBroadcaster sets the WebSocket broadcaster.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Generate asks the completion endpoint for recommendations. A transport
// failure yields the transport fallback list.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	prompt := BuildPrompt(req)

	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Completion failed, using transport fallback")
		return TransportFailure()
	}

	result := ParseRecommendations(raw)
	if result.IsFallback() {
		s.logger.Warn().
			Int("chars", len(raw)).
			Msg("Could not parse completion text, using parse fallback")
	}
	return result
}

// Recommend runs the full pipeline. It never fails; every error path
// degrades to a fallback or an unmatched entry.
func (s *Service) Recommend(ctx context.Context, req Request) Response {
	start := time.Now()

	result := s.Generate(ctx, req)
	enriched := s.enricher.Enrich(ctx, result.Recommendations)

	matched := 0
	for _, r := range enriched {
		if r.TMDBMovie != nil {
			matched++
		}
	}

	elapsed := time.Since(start)
	metrics.Recommendations.WithLabelValues(string(result.Source)).Inc()
	metrics.RecommendationDuration.Observe(elapsed.Seconds())
	s.logger.Info().
		Str("source", string(result.Source)).
		Int("count", len(enriched)).
		Int("matched", matched).
		Dur("duration", elapsed).
		Msg("Generated recommendations")

	if s.broadcaster != nil {
		event := GeneratedEvent{Count: len(enriched), Matched: matched, Source: result.Source}
		if err := s.broadcaster.Broadcast("recommendations:generated", event); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to broadcast recommendation event")
		}
	}

	return Response{Recommendations: enriched, Source: result.Source}
}
