package domain

import "time"

type SessionID string
type MessageID string

type Author string

const (
	AuthorUser   Author = "user"
	AuthorModel  Author = "model"
	AuthorSystem Author = "system"
)

type Timestamp = time.Time
