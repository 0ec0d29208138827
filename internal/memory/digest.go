package memory

import (
	"strings"

	"github.com/agentarena/arena/internal/model"
)

// digestSnippetChars is the per-message character cap applied when
// compressing older dialogue history into a digest (§4.2 conversation
// digest, an optional supplement grounded on the original's message
// summarizer utility).
const digestSnippetChars = 100

// Digest compresses messages into a short "## Conversation digest" block,
// one bullet per message (author + truncated content). The Context Builder
// uses it, when a Request sets UseDigestForOldHistory, in place of every
// history message except the newest; the Context Builder decides when to
// call it, Digest itself is pure.
func Digest(messages []model.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Conversation digest\n")
	for _, m := range messages {
		author := m.AuthorName
		if author == "" {
			author = string(m.Role)
		}
		snippet := m.Content
		truncated := false
		if len(snippet) > digestSnippetChars {
			snippet = snippet[:digestSnippetChars]
			truncated = true
		}
		if truncated {
			snippet += "..."
		}
		b.WriteString("- " + author + ": " + snippet + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
