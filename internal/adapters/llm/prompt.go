package llm

import (
	"google.golang.org/genai"

	"github.com/PabloGalante/soldiom/internal/domain"
)

const DefaultModel = "gemini-3-flash-preview"

// BuildContents turns the session history plus the new user text into the
// conversation sent to the model. Tool outputs and empty messages are not
// part of the model's conversation.
func BuildContents(req domain.ChatRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)

	for _, m := range req.History {
		if m == nil || m.Text == "" {
			continue
		}

		var role genai.Role
		switch m.Author {
		case domain.AuthorUser:
			role = genai.RoleUser
		case domain.AuthorModel:
			role = genai.RoleModel
		default:
			continue
		}

		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	contents = append(contents, genai.NewContentFromText(req.Text, genai.RoleUser))
	return contents
}
