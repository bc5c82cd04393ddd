package llm

import (
	"context"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"

	"github.com/PabloGalante/soldiom/internal/domain"
)

// GeminiConfig selects the backend and generation settings.
type GeminiConfig struct {
	APIKey string // Gemini API; ignored when Vertex is set

	Vertex   bool
	Project  string
	Location string

	Model          string
	Temperature    float32
	ThinkingBudget int32 // used when a request enables thinking
	GoogleSearch   bool
}

// GeminiTransport implements domain.ChatTransport with streamed Gemini replies
// grounded by Google Search.
type GeminiTransport struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiTransport creates a transport on the Gemini API, or on Vertex AI
// when cfg.Vertex is set.
func NewGeminiTransport(ctx context.Context, cfg GeminiConfig) (*GeminiTransport, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Vertex {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex backend needs project and location")
		}
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini backend needs an API key")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiTransport{client: client, cfg: cfg}, nil
}

// OpenStream implements domain.ChatTransport.
func (g *GeminiTransport) OpenStream(ctx context.Context, req domain.ChatRequest) (domain.ChatStream, error) {
	contents := BuildContents(req)
	cfg := g.generateConfig(req)

	seq := g.client.Models.GenerateContentStream(ctx, g.cfg.Model, contents, cfg)
	return newGeminiStream(seq), nil
}

func (g *GeminiTransport) generateConfig(req domain.ChatRequest) *genai.GenerateContentConfig {
	temp := g.cfg.Temperature

	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if g.cfg.GoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.EnableThinking && g.cfg.ThinkingBudget > 0 {
		budget := g.cfg.ThinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	return cfg
}

// geminiStream adapts the SDK's push iterator to the pull-based ChatStream.
type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func newGeminiStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *geminiStream {
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}
}

func (s *geminiStream) Recv() (domain.StreamDelta, error) {
	resp, err, ok := s.next()
	if !ok {
		return domain.StreamDelta{}, io.EOF
	}
	if err != nil {
		return domain.StreamDelta{}, fmt.Errorf("gemini stream: %w", err)
	}
	return DeltaFromResponse(resp), nil
}

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}

// DeltaFromResponse extracts the visible text and web citations of the first
// candidate. Thought parts are skipped.
func DeltaFromResponse(resp *genai.GenerateContentResponse) domain.StreamDelta {
	var d domain.StreamDelta
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return d
	}
	cand := resp.Candidates[0]

	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			d.Text += part.Text
		}
	}

	if gm := cand.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			d.Citations = append(d.Citations, domain.Citation{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}

	return d
}
