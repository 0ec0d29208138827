// Package worker implements the Worker Runtime: per-agent CLI adapter
// selection, subprocess invocation with timeouts, and the shared
// output-parsing algorithm every adapter uses (§4.3).
package worker

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/agentarena/arena/internal/model"
)

var nextMentionsPattern = regexp.MustCompile(`<!--NEXT_MENTIONS:(\[.*?\])-->`)

// jsonBlock mirrors one element of a CLI's block-array JSON output, e.g.
// Claude's `[{"type":"text","text":"..."}]` form.
type jsonBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseOutput extracts the reply content, should_respond flag, and
// next_mentions list from a CLI's raw stdout, shared by every adapter
// (§4.3 "shared output-parsing function", factored out unlike the
// original which duplicates it per adapter).
//
// Order: try JSON `result`/`content` (object) or block-array `text` fields
// (list); fall back to the raw text on any parse failure. Then check for a
// bare SKIP response. Then extract and strip an embedded NEXT_MENTIONS
// marker. Finally trim the content.
func ParseOutput(raw string) model.AgentOutput {
	content := extractContent(raw)

	shouldRespond := true
	trimmed := strings.TrimSpace(content)
	if trimmed == "SKIP" || strings.HasPrefix(trimmed, "SKIP") {
		shouldRespond = false
		content = ""
	}

	var nextMentions []string
	if all := nextMentionsPattern.FindAllStringSubmatch(content, -1); len(all) > 0 {
		last := all[len(all)-1]
		_ = json.Unmarshal([]byte(last[1]), &nextMentions)
		content = nextMentionsPattern.ReplaceAllString(content, "")
	}
	content = strings.TrimSpace(content)

	return model.AgentOutput{
		Content:       content,
		NextMentions:  nextMentions,
		ShouldRespond: shouldRespond,
	}
}

func extractContent(raw string) string {
	trimmed := strings.TrimSpace(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		if result, ok := obj["result"]; ok {
			if s, ok := stringValue(result); ok {
				return s
			}
		}
		if content, ok := obj["content"]; ok {
			if s, ok := stringValue(content); ok {
				return s
			}
		}
		return raw
	}

	var blocks []jsonBlock
	if err := json.Unmarshal([]byte(trimmed), &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
		return raw
	}

	return raw
}

func stringValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
