package domain

// Citation is a web source attached to generated text. Two citations with the
// same URI are the same citation, whatever their titles.
type Citation struct {
	URI   string
	Title string
}

// StreamDelta is one incremental unit received from the chat transport.
type StreamDelta struct {
	Text      string
	Citations []Citation
}

// Blob is binary payload exchanged with the inference backend (images, audio).
type Blob struct {
	ContentType string
	Data        []byte
}
