// Package huggingface is a client for the Hugging Face Inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PabloGalante/soldiom/internal/domain"
)

const DefaultBaseURL = "https://api-inference.huggingface.co"

// Models used for each utility.
type Models struct {
	Image         string
	Code          string
	Translation   string
	Summarization string
	SpeechToText  string
	TextToSpeech  string
}

func DefaultModels() Models {
	return Models{
		Image:         "black-forest-labs/FLUX.1-schnell",
		Code:          "bigcode/starcoder2-15b",
		Translation:   "facebook/nllb-200-distilled-600M",
		Summarization: "facebook/bart-large-cnn",
		SpeechToText:  "openai/whisper-large-v3",
		TextToSpeech:  "facebook/mms-tts-eng",
	}
}

type Config struct {
	Token   string
	BaseURL string
	Models  Models

	// RPS and Burst pace outgoing requests (defaults 2 and 4).
	RPS   float64
	Burst int

	HTTPClient *http.Client
}

// APIError is a non-2xx answer from the inference API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client implements domain.InferenceClient.
type Client struct {
	token   string
	baseURL string
	models  Models
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 4
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		token:   cfg.Token,
		baseURL: base,
		models:  withDefaults(cfg.Models),
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func withDefaults(m Models) Models {
	d := DefaultModels()
	if m.Image == "" {
		m.Image = d.Image
	}
	if m.Code == "" {
		m.Code = d.Code
	}
	if m.Translation == "" {
		m.Translation = d.Translation
	}
	if m.Summarization == "" {
		m.Summarization = d.Summarization
	}
	if m.SpeechToText == "" {
		m.SpeechToText = d.SpeechToText
	}
	if m.TextToSpeech == "" {
		m.TextToSpeech = d.TextToSpeech
	}
	return m
}

type inputs struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// GenerateImage implements domain.InferenceClient.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (domain.Blob, error) {
	body, ct, err := c.query(ctx, c.models.Image, inputs{Inputs: prompt})
	if err != nil {
		return domain.Blob{}, err
	}
	return domain.Blob{ContentType: ct, Data: body}, nil
}

// GenerateCode implements domain.InferenceClient.
func (c *Client) GenerateCode(ctx context.Context, prompt string) (string, error) {
	body, _, err := c.query(ctx, c.models.Code, inputs{Inputs: prompt})
	if err != nil {
		return "", err
	}
	return field(body, "generated_text")
}

// Translate implements domain.InferenceClient. Languages are NLLB codes such
// as "eng_Latn".
func (c *Client) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	body, _, err := c.query(ctx, c.models.Translation, inputs{
		Inputs:     text,
		Parameters: map[string]any{"src_lang": srcLang, "tgt_lang": tgtLang},
	})
	if err != nil {
		return "", err
	}
	return field(body, "translation_text")
}

// Summarize implements domain.InferenceClient.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	body, _, err := c.query(ctx, c.models.Summarization, inputs{Inputs: text})
	if err != nil {
		return "", err
	}
	return field(body, "summary_text")
}

// Transcribe implements domain.InferenceClient. The audio is posted as-is.
func (c *Client) Transcribe(ctx context.Context, audio domain.Blob) (string, error) {
	ct := audio.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	body, _, err := c.post(ctx, c.models.SpeechToText, ct, audio.Data)
	if err != nil {
		return "", err
	}
	return field(body, "text")
}

// SynthesizeSpeech implements domain.InferenceClient.
func (c *Client) SynthesizeSpeech(ctx context.Context, text string) (domain.Blob, error) {
	body, ct, err := c.query(ctx, c.models.TextToSpeech, inputs{Inputs: text})
	if err != nil {
		return domain.Blob{}, err
	}
	return domain.Blob{ContentType: ct, Data: body}, nil
}

func (c *Client) query(ctx context.Context, model string, payload inputs) ([]byte, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("encoding request: %w", err)
	}
	return c.post(ctx, model, "application/json", data)
}

func (c *Client) post(ctx context.Context, model, contentType string, data []byte) ([]byte, string, error) {
	if c.token == "" {
		return nil, "", fmt.Errorf("missing HF_TOKEN: %w", domain.ErrInferenceUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+model, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("inference request %s: %w", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s response: %w", model, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", apiError(resp, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func apiError(resp *http.Response, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HF API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

// field reads key from either an object or the first element of an array;
// the API answers with both shapes depending on the model.
func field(body []byte, key string) (string, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", nil
		}
		s, _ := list[0][key].(string)
		return s, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	s, _ := obj[key].(string)
	return s, nil
}
