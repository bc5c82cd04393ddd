package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/soldiom/internal/adapters/huggingface"
	"github.com/PabloGalante/soldiom/internal/app/conversation"
	"github.com/PabloGalante/soldiom/internal/app/markdown"
	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/app/turn"
	"github.com/PabloGalante/soldiom/internal/domain"
	"github.com/PabloGalante/soldiom/internal/observability"
)

// maxAudioBytes bounds raw audio uploads.
const maxAudioBytes = 25 << 20

type Server struct {
	svc *conversation.Service
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/roles", s.handleListRoles).Methods(http.MethodGet)
	r.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	r.HandleFunc("/tools/languages", s.handleListLanguages).Methods(http.MethodGet)
	r.HandleFunc("/structure", s.handleStructure).Methods(http.MethodPost)
	r.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleUpdateSession).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}/messages", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/messages", s.handleResetSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/messages/stream", s.handleStreamMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/cancel", s.handleCancelTurn).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/tools/{tool}", s.handleRunTool).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	})

	return chainMiddlewares(r, withLogging, withRequestID, withCORS)
}

// DTOs

type createSessionRequest struct {
	Role           string `json:"role,omitempty"`
	EnableThinking bool   `json:"enable_thinking,omitempty"`
	Title          string `json:"title,omitempty"`
}

type updateSessionRequest struct {
	Role           *string `json:"role,omitempty"`
	EnableThinking *bool   `json:"enable_thinking,omitempty"`
	Title          *string `json:"title,omitempty"`
}

type sessionResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Role           string    `json:"role"`
	EnableThinking bool      `json:"enable_thinking"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type citationResponse struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

type messageResponse struct {
	ID           string              `json:"id"`
	SessionID    string              `json:"session_id"`
	Author       string              `json:"author"`
	Text         string              `json:"text"`
	Citations    []citationResponse  `json:"citations,omitempty"`
	Nodes        []markdown.NodeView `json:"nodes,omitempty"`
	Streaming    bool                `json:"streaming,omitempty"`
	IsToolOutput bool                `json:"is_tool_output,omitempty"`
	Image        string              `json:"image,omitempty"`
	Audio        string              `json:"audio,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  messageResponse `json:"user_message"`
	ModelMessage messageResponse `json:"model_message"`
	Outcome      string          `json:"outcome"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

type roleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type toolResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type languageResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type structureRequest struct {
	Text string `json:"text"`
}

type toolRequest struct {
	Text        string `json:"text,omitempty"`
	SourceLang  string `json:"source_lang,omitempty"`
	TargetLang  string `json:"target_lang,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type updateEvent struct {
	Text      string              `json:"text"`
	Citations []citationResponse  `json:"citations"`
	Nodes     []markdown.NodeView `json:"nodes"`
}

type doneEvent struct {
	Outcome string          `json:"outcome"`
	Error   string          `json:"error,omitempty"`
	Message messageResponse `json:"message"`
}

// Handlers

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRoles(w http.ResponseWriter, _ *http.Request) {
	roles := s.svc.ListRoles()
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{ID: string(r.ID), Name: r.Name, Description: r.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	list := s.svc.ListTools()
	out := make([]toolResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toolResponse{Name: t.Name(), Description: t.Description()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListLanguages(w http.ResponseWriter, _ *http.Request) {
	langs := tools.Languages()
	out := make([]languageResponse, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageResponse{Code: l.Code, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var req structureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": markdown.Views(markdown.Structure(req.Text)),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// An empty body starts a GENERAL session.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		Role:           domain.ParseRoleType(req.Role),
		EnableThinking: req.EnableThinking,
		Title:          req.Title,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session": toSessionResponse(out.Session),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := s.svc.ListSessions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), sessionID(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	in := conversation.UpdateSessionInput{
		SessionID:      sessionID(r),
		EnableThinking: req.EnableThinking,
		Title:          req.Title,
	}
	if req.Role != nil {
		role := domain.ParseRoleType(*req.Role)
		in.Role = &role
	}

	session, err := s.svc.UpdateSession(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": toSessionResponse(session)})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.ResetSession(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": toSessionResponse(session)})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Text:      req.Text,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:  toMessageResponse(out.UserMessage),
		ModelMessage: toMessageResponse(out.ModelMessage),
		Outcome:      string(out.Outcome),
	})
}

// handleStreamMessage answers with server-sent events: one "update" per
// received delta and a final "done" carrying the stored message.
func (s *Server) handleStreamMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	log := observability.LoggerFromContext(r.Context())

	out, err := s.svc.StreamMessage(r.Context(), conversation.StreamMessageInput{
		SessionID: sessionID(r),
		Text:      req.Text,
	}, func(u turn.Update) {
		if u.Done {
			return
		}
		if err := sse.event("update", updateEvent{
			Text:      u.Text,
			Citations: toCitationsResponse(u.Citations),
			Nodes:     markdown.Views(u.Nodes),
		}); err != nil {
			log.Debug("sse write failed", "error", err)
		}
	})
	if err != nil {
		if !sse.started {
			writeServiceError(w, err)
			return
		}
		_ = sse.event("error", map[string]string{"error": err.Error()})
		return
	}

	_ = sse.event("done", doneEvent{
		Outcome: string(out.Outcome),
		Error:   out.Err,
		Message: toMessageResponse(out.ModelMessage),
	})
}

func (s *Server) handleCancelTurn(w http.ResponseWriter, r *http.Request) {
	cancelled := s.svc.CancelTurn(r.Context(), sessionID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	in := tools.Input{
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}
	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			badRequest(w, "audio_base64 is not valid base64")
			return
		}
		in.Audio = &domain.Blob{ContentType: req.ContentType, Data: data}
	}

	msg, err := s.svc.RunTool(r.Context(), conversation.RunToolInput{
		SessionID: sessionID(r),
		Tool:      mux.Vars(r)["tool"],
		Input:     in,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": toMessageResponse(msg)})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		badRequest(w, "could not read audio")
		return
	}
	if len(data) > maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio too large")
		return
	}

	text, err := s.svc.Transcribe(r.Context(), domain.Blob{
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Conversation Helpers

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(mux.Vars(r)["id"])
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:             string(s.ID),
		Title:          s.Title,
		Role:           string(s.Role),
		EnableThinking: s.EnableThinking,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toCitationsResponse(cs []domain.Citation) []citationResponse {
	out := make([]citationResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, citationResponse{URI: c.URI, Title: c.Title})
	}
	return out
}

func toMessageResponse(m *domain.Message) messageResponse {
	resp := messageResponse{
		ID:           string(m.ID),
		SessionID:    string(m.SessionID),
		Author:       string(m.Author),
		Text:         m.Text,
		Streaming:    m.Streaming,
		IsToolOutput: m.IsToolOutput,
		Image:        m.Image,
		Audio:        m.Audio,
		CreatedAt:    m.CreatedAt,
	}
	if len(m.Citations) > 0 {
		resp.Citations = toCitationsResponse(m.Citations)
	}
	if m.Author != domain.AuthorUser {
		resp.Nodes = markdown.Views(markdown.Structure(m.Text))
	}
	return resp
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// HTTP Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// reported as a 500 without leaking details.
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *huggingface.APIError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTurnInProgress), errors.Is(err, domain.ErrSessionExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownRole),
		errors.Is(err, domain.ErrUnknownTool):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInferenceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
