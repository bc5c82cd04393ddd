package tools

import (
	"context"
	"sort"

	"github.com/PabloGalante/soldiom/internal/domain"
)

// ToolContext brings metadata of the call to the tool
type ToolContext struct {
	SessionID string
	RequestID string
}

// Input is what the tools panel collects from the user. Each tool reads the
// fields it needs.
type Input struct {
	Text       string
	SourceLang string
	TargetLang string
	Audio      *domain.Blob
}

// Kind tells the presentation layer how to show a Result.
type Kind string

const (
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Result is the output of one tool call. Text is markdown ready to be shown
// as a message; Blob carries binary output for image and audio tools.
type Result struct {
	Kind Kind
	Text string
	Blob *domain.Blob
}

// Tool represents a single-shot utility backed by the inference client.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error)
}

// Registry resolves tools by name.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// NewDefaultRegistry registers every inference tool on client.
func NewDefaultRegistry(client domain.InferenceClient) *Registry {
	return NewRegistry(
		NewImageTool(client),
		NewCodeTool(client),
		NewTranslateTool(client),
		NewSummarizeTool(client),
		NewTranscribeTool(client),
		NewSpeakTool(client),
	)
}

func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, domain.ErrUnknownTool
	}
	return t, nil
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
