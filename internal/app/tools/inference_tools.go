package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/soldiom/internal/domain"
	"github.com/PabloGalante/soldiom/internal/observability"
)

// run wraps one backend call with input validation, logging and metrics.
func run(ctx context.Context, name string, tctx ToolContext, call func() (*Result, error)) (*Result, error) {
	log := observability.LoggerFromContext(ctx).With(
		"tool", name,
		"session_id", tctx.SessionID,
	)
	start := time.Now()

	res, err := call()
	observability.ObserveInference(name, time.Since(start), err)
	if err != nil {
		log.Error("tool call failed", "error", err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Info("tool call succeeded", "kind", res.Kind, "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

func requireText(in Input) (string, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	return text, nil
}

// DataURL encodes a blob for inline display.
func DataURL(b domain.Blob) string {
	ct := b.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// ImageTool generates an image from a prompt.
type ImageTool struct{ client domain.InferenceClient }

func NewImageTool(c domain.InferenceClient) *ImageTool { return &ImageTool{client: c} }

func (t *ImageTool) Name() string        { return "image" }
func (t *ImageTool) Description() string { return "Image Generation (FLUX.1-schnell)" }

func (t *ImageTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	prompt, err := requireText(in)
	if err != nil {
		return nil, err
	}
	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		blob, err := t.client.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, err
		}
		if blob.ContentType == "" {
			blob.ContentType = "image/jpeg"
		}
		return &Result{Kind: KindImage, Text: "Image Generated", Blob: &blob}, nil
	})
}

// CodeTool completes code from a description.
type CodeTool struct{ client domain.InferenceClient }

func NewCodeTool(c domain.InferenceClient) *CodeTool { return &CodeTool{client: c} }

func (t *CodeTool) Name() string        { return "code" }
func (t *CodeTool) Description() string { return "Code Assistant (StarCoder2)" }

func (t *CodeTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	prompt, err := requireText(in)
	if err != nil {
		return nil, err
	}
	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		code, err := t.client.GenerateCode(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: KindCode, Text: code}, nil
	})
}

// TranslateTool translates text between NLLB languages.
type TranslateTool struct{ client domain.InferenceClient }

func NewTranslateTool(c domain.InferenceClient) *TranslateTool { return &TranslateTool{client: c} }

func (t *TranslateTool) Name() string        { return "translate" }
func (t *TranslateTool) Description() string { return "Translator (NLLB-200)" }

func (t *TranslateTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	text, err := requireText(in)
	if err != nil {
		return nil, err
	}
	src, tgt := in.SourceLang, in.TargetLang
	if src == "" {
		src = DefaultSourceLang
	}
	if tgt == "" {
		tgt = DefaultTargetLang
	}
	if !isLanguage(src) || !isLanguage(tgt) {
		return nil, fmt.Errorf("unsupported language %q -> %q: %w", src, tgt, domain.ErrInvalidInput)
	}

	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		out, err := t.client.Translate(ctx, text, src, tgt)
		if err != nil {
			return nil, err
		}
		return &Result{
			Kind: KindText,
			Text: fmt.Sprintf("**Translation (%s):**\n%s", shortLang(tgt), out),
		}, nil
	})
}

// SummarizeTool condenses long text.
type SummarizeTool struct{ client domain.InferenceClient }

func NewSummarizeTool(c domain.InferenceClient) *SummarizeTool { return &SummarizeTool{client: c} }

func (t *SummarizeTool) Name() string        { return "summarize" }
func (t *SummarizeTool) Description() string { return "Summarizer (BART-Large)" }

func (t *SummarizeTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	text, err := requireText(in)
	if err != nil {
		return nil, err
	}
	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		out, err := t.client.Summarize(ctx, text)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: KindText, Text: "**Summary:**\n" + out}, nil
	})
}

// TranscribeTool turns recorded audio into text.
type TranscribeTool struct{ client domain.InferenceClient }

func NewTranscribeTool(c domain.InferenceClient) *TranscribeTool { return &TranscribeTool{client: c} }

func (t *TranscribeTool) Name() string        { return "transcribe" }
func (t *TranscribeTool) Description() string { return "Speech to Text (Whisper large-v3)" }

func (t *TranscribeTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	if in.Audio == nil || len(in.Audio.Data) == 0 {
		return nil, fmt.Errorf("audio is required: %w", domain.ErrInvalidInput)
	}
	audio := *in.Audio
	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		text, err := t.client.Transcribe(ctx, audio)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: KindText, Text: strings.TrimSpace(text)}, nil
	})
}

// SpeakTool reads text aloud.
type SpeakTool struct{ client domain.InferenceClient }

func NewSpeakTool(c domain.InferenceClient) *SpeakTool { return &SpeakTool{client: c} }

func (t *SpeakTool) Name() string        { return "speak" }
func (t *SpeakTool) Description() string { return "Text to Speech (MMS-TTS)" }

func (t *SpeakTool) Call(ctx context.Context, tctx ToolContext, in Input) (*Result, error) {
	text, err := requireText(in)
	if err != nil {
		return nil, err
	}
	return run(ctx, t.Name(), tctx, func() (*Result, error) {
		blob, err := t.client.SynthesizeSpeech(ctx, text)
		if err != nil {
			return nil, err
		}
		if blob.ContentType == "" {
			blob.ContentType = "audio/flac"
		}
		return &Result{Kind: KindAudio, Text: "Audio Generated", Blob: &blob}, nil
	})
}
