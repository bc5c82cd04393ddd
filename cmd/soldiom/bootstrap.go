package main

import (
	"context"
	"fmt"

	"github.com/PabloGalante/soldiom/internal/adapters/huggingface"
	"github.com/PabloGalante/soldiom/internal/adapters/llm"
	memstore "github.com/PabloGalante/soldiom/internal/adapters/storage/memory"
	"github.com/PabloGalante/soldiom/internal/app/conversation"
	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/config"
	"github.com/PabloGalante/soldiom/internal/domain"
	"github.com/PabloGalante/soldiom/internal/observability"
)

func newTransport(ctx context.Context, c *config.Config) (domain.ChatTransport, error) {
	log := observability.Logger()

	switch c.LLMBackend {
	case config.BackendMock:
		log.Info("using mock chat transport")
		return llm.NewMockTransport(), nil
	case config.BackendGemini, config.BackendVertex:
		log.Info("using gemini chat transport", "backend", c.LLMBackend, "model", c.ModelName)
		t, err := llm.NewGeminiTransport(ctx, llm.GeminiConfig{
			APIKey:         c.APIKey,
			Vertex:         c.LLMBackend == config.BackendVertex,
			Project:        c.GCPProjectID,
			Location:       c.GCPLocation,
			Model:          c.ModelName,
			Temperature:    c.Temperature,
			ThinkingBudget: c.ThinkingBudget,
			GoogleSearch:   c.GoogleSearch,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing %s transport: %w", c.LLMBackend, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown llm backend %q", c.LLMBackend)
}

func newToolRegistry(c *config.Config) *tools.Registry {
	if c.HFToken == "" {
		observability.Logger().Warn("HF_TOKEN not set, tools will report the backend as unavailable")
	}
	return tools.NewDefaultRegistry(huggingface.NewClient(c.HuggingFace()))
}

// newService wires the conversation service on in-memory storage.
func newService(ctx context.Context, c *config.Config) (*conversation.Service, error) {
	transport, err := newTransport(ctx, c)
	if err != nil {
		return nil, err
	}

	roles, err := config.LoadRoles(c.RolesFile)
	if err != nil {
		return nil, err
	}

	svc := conversation.NewService(
		transport,
		memstore.NewSessionStore(),
		memstore.NewMessageStore(),
		roles,
		newToolRegistry(c),
	)
	svc.SetHistoryLimit(c.HistoryLimit)
	return svc, nil
}
