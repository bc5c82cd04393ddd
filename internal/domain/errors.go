package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExists        = errors.New("session already exists")
	ErrMessageNotFound      = errors.New("message not found")
	ErrTurnInProgress       = errors.New("a reply is already streaming for this session")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrUnknownRole          = errors.New("unknown role")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInferenceUnavailable = errors.New("inference backend is not configured")
)
