// Package assistant composes replies to shopper questions, either
// deterministically from matched catalog facts or by delegating to a
// completion model grounded in retrieved context.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnicart/assistant/internal/knowledge"
	"github.com/omnicart/assistant/internal/query"
	"github.com/omnicart/assistant/internal/retrieval"
)

// Fixed user-safe replies for the terminal failure paths. The intent field on
// the response identifies the failure class.
const (
	ReplyNotConfigured  = "The AI assistant is not configured yet. Please contact support to enable it."
	ReplyNoData         = "I do not have enough data to answer that right now. Please try again later."
	ReplyEmbeddingError = "I ran into an issue understanding that question. Please try rephrasing it."
	ReplyUnavailable    = "The AI assistant is temporarily unavailable. Please try again later."
	ReplyEmptyAnswer    = "I could not find enough information to answer that. Please try the product page."
	ReplyMatchesFound   = "Here are the closest matches I found for your request."
)

// Config is the answer-composition policy: model chain, prompt template, and
// output constraints. Injected so tests can substitute deterministic stubs.
type Config struct {
	PrimaryModel   string
	FallbackModels []string
	Temperature    float64
	PromptTemplate string
	MaxReplyWords  int
}

// DefaultConfig returns the production composition policy.
func DefaultConfig() Config {
	return Config{
		PrimaryModel:   SupportedModels[0],
		FallbackModels: SupportedModels,
		Temperature:    0.2,
		PromptTemplate: SystemPromptTemplate,
		MaxReplyWords:  60,
	}
}

// Response is the structured result of one chat request.
type Response struct {
	Reply    string              `json:"reply"`
	Sources  []string            `json:"sources"`
	Products []retrieval.Product `json:"products"`
	Shops    []retrieval.Shop    `json:"shops"`
	Actions  []Action            `json:"actions"`
	Intent   string              `json:"intent"`
}

// Service resolves shopper messages end to end: parse, retrieve, compose.
// Stateless across requests; safe for concurrent use.
type Service struct {
	completer Completer
	refresher *knowledge.Refresher
	retriever *retrieval.Retriever
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a Service. completer may be nil when no credential is
// configured; every request then resolves to the configuration-error reply.
// A nil logger falls back to slog.Default().
func NewService(completer Completer, refresher *knowledge.Refresher, retriever *retrieval.Retriever, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		completer: completer,
		refresher: refresher,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger,
	}
}

// Respond resolves one shopper message. It never returns an error: every
// terminal failure path resolves to a structured response whose intent tag
// identifies the failure class.
func (s *Service) Respond(ctx context.Context, message string) *Response {
	if s.completer == nil {
		return fallback(ReplyNotConfigured, query.IntentConfigurationError)
	}

	idx, err := s.refresher.Load()
	if err != nil {
		s.logger.Error("Failed to load knowledge index", "error", err)
		return fallback(ReplyNoData, query.IntentNoData)
	}
	if len(idx.Entries) == 0 {
		refreshed, err := s.refresher.Refresh(ctx)
		if err != nil {
			s.logger.Error("Knowledge index refresh failed", "error", err)
			return fallback(ReplyNoData, query.IntentNoData)
		}
		idx = refreshed
	}
	if len(idx.Entries) == 0 {
		return fallback(ReplyNoData, query.IntentNoData)
	}

	qctx := query.Parse(message)

	result, err := s.retriever.Retrieve(ctx, qctx, idx)
	if err != nil {
		if errors.Is(err, retrieval.ErrQueryEmbedding) {
			s.logger.Warn("Query embedding failed", "error", err)
			return fallback(ReplyEmbeddingError, query.IntentEmbeddingError)
		}
		s.logger.Error("Retrieval failed", "error", err)
		return fallback(ReplyUnavailable, query.IntentError)
	}

	intent := s.classify(qctx, result)
	actions := BuildActions(intent, result.Products, result.Shops)

	if len(result.Products) > 0 {
		reply := ComposeProductReply(result.Products, qctx.ShopPhrase, s.cfg.MaxReplyWords)
		if reply == "" {
			reply = ReplyMatchesFound
		}
		return &Response{
			Reply:    reply,
			Sources:  []string{},
			Products: result.Products,
			Shops:    result.Shops,
			Actions:  actions,
			Intent:   intent,
		}
	}

	reply, err := s.complete(ctx, message, result)
	if err != nil {
		s.logger.Error("Completion failed", "error", err)
		providerMsg := providerMessage(err)
		if providerMsg == "" {
			providerMsg = ReplyUnavailable
		}
		return fallback(providerMsg, query.IntentError)
	}

	products := result.Products
	if products == nil {
		products = []retrieval.Product{}
	}
	shops := result.Shops
	if shops == nil {
		shops = []retrieval.Shop{}
	}
	if actions == nil {
		actions = []Action{}
	}
	return &Response{
		Reply:    reply,
		Sources:  []string{},
		Products: products,
		Shops:    shops,
		Actions:  actions,
		Intent:   intent,
	}
}

// classify derives the response intent: explicit listing intents take
// precedence, then the fixed taxonomy.
func (s *Service) classify(qctx query.Context, result *retrieval.Result) string {
	switch {
	case qctx.ShopPhrase != "":
		return query.IntentListProductsByShop
	case qctx.WantsListing && len(qctx.Keywords) > 0:
		return query.IntentListProducts
	default:
		return query.ClassifyIntent(qctx.Message, len(result.Products) > 0)
	}
}

// complete delegates to the completion model, retrying down the fallback
// chain on decommissioned/not-found models only.
func (s *Service) complete(ctx context.Context, message string, result *retrieval.Result) (string, error) {
	systemPrompt := BuildSystemPrompt(s.cfg.PromptTemplate, result.ContextEntries, result.Products)

	models := make([]string, 0, len(s.cfg.FallbackModels)+1)
	models = append(models, s.cfg.PrimaryModel)
	for _, m := range s.cfg.FallbackModels {
		if m != s.cfg.PrimaryModel {
			models = append(models, m)
		}
	}

	for _, model := range models {
		answer, err := s.completer.Complete(ctx, model, systemPrompt, message, s.cfg.Temperature)
		if err != nil {
			if IsModelUnavailable(err) {
				s.logger.Warn("Completion model unavailable, trying next", "model", model, "error", err)
				continue
			}
			return "", err
		}
		if model != s.cfg.PrimaryModel {
			s.logger.Warn("Switched completion model due to availability", "from", s.cfg.PrimaryModel, "to", model)
		}
		if answer == "" {
			answer = ReplyEmptyAnswer
		}
		return Sanitize(answer, s.cfg.MaxReplyWords), nil
	}

	return "", fmt.Errorf("no available completion model could satisfy the request")
}

func fallback(reply, intent string) *Response {
	return &Response{
		Reply:    reply,
		Sources:  []string{},
		Products: []retrieval.Product{},
		Shops:    []retrieval.Shop{},
		Actions:  []Action{},
		Intent:   intent,
	}
}
