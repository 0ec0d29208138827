// Package orchestrator implements the Orchestrator: turn scheduling,
// mention resolution, chained follow-up turns, and memory-marker
// processing (§4.1, §4.4).
package orchestrator

import (
	"regexp"

	"github.com/agentarena/arena/internal/model"
)

// broadcastSentinel is the distinguished mention meaning "everyone".
const broadcastSentinel = "@all"

// mentionPattern matches `@token` only when preceded by line-start or
// whitespace, so email addresses, filenames, and code snippets embedded in
// a message are not mistaken for mentions.
var mentionPattern = regexp.MustCompile(`(?m)(?:^|\s)@(\S+)`)

// ParseMentions extracts every @mention from content, resolving each token
// against the group's agent roster: the broadcast sentinel ("all" / the
// localized synonym "所有人") first, then exact agent_id, then exact
// display name; anything else is discarded.
func ParseMentions(content string, members []model.GroupMember) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	agentIDs := make(map[string]bool)
	names := make(map[string]string)
	for _, m := range members {
		if m.Type != model.MemberAgent || m.AgentID == "" {
			continue
		}
		agentIDs[m.AgentID] = true
		if m.DisplayName != "" {
			names[m.DisplayName] = m.AgentID
		}
	}

	var mentions []string
	seen := make(map[string]bool)
	for _, m := range matches {
		token := m[1]
		var resolved string
		switch {
		case token == "all" || token == "所有人":
			resolved = broadcastSentinel
		case agentIDs[token]:
			resolved = token
		default:
			if aid, ok := names[token]; ok {
				resolved = aid
			}
		}
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		mentions = append(mentions, resolved)
	}
	return mentions
}
