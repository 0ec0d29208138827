package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/model"
)

var (
	memoryMarkerPattern      = regexp.MustCompile(`<!--MEMORY:(\{.*?\})-->`)
	personalLogMarkerPattern = regexp.MustCompile(`<!--PERSONAL_LOG:(.*?)-->`)
)

// rawMemoryMarker mirrors the JSON payload of one <!--MEMORY:{...}--> marker.
type rawMemoryMarker struct {
	Type       model.MemoryType `json:"type"`
	Content    string           `json:"content"`
	Importance *float64         `json:"importance"`
}

// defaultMemoryImportance is used when a MEMORY marker omits importance.
const defaultMemoryImportance = 0.7

// extractedMarkers holds what ExtractMarkers found in one agent reply.
type extractedMarkers struct {
	StrippedContent string
	MemoryEntries   []model.MemoryEntry
	PersonalLogs    []string
}

// ExtractMarkers finds every MEMORY and PERSONAL_LOG marker in content,
// parses the MEMORY markers as JSON (logging and skipping malformed ones),
// and strips both marker kinds — even malformed ones — so the user never
// sees them (§4.4 steps 1-3).
func ExtractMarkers(content string, log *logging.Logger) extractedMarkers {
	if log == nil {
		log = logging.Default()
	}

	var entries []model.MemoryEntry
	for _, m := range memoryMarkerPattern.FindAllStringSubmatch(content, -1) {
		var raw rawMemoryMarker
		if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
			log.WithError(err).Warn("orchestrator: skipping malformed MEMORY marker")
			continue
		}
		importance := defaultMemoryImportance
		if raw.Importance != nil {
			importance = *raw.Importance
		}
		entries = append(entries, model.MemoryEntry{
			Type:       raw.Type,
			Content:    raw.Content,
			Importance: importance,
		})
	}

	var personalLogs []string
	for _, m := range personalLogMarkerPattern.FindAllStringSubmatch(content, -1) {
		text := strings.TrimSpace(m[1])
		if text != "" {
			personalLogs = append(personalLogs, text)
		}
	}

	stripped := memoryMarkerPattern.ReplaceAllString(content, "")
	stripped = personalLogMarkerPattern.ReplaceAllString(stripped, "")
	stripped = strings.TrimSpace(stripped)

	return extractedMarkers{StrippedContent: stripped, MemoryEntries: entries, PersonalLogs: personalLogs}
}
