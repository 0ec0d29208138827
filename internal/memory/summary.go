package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/model"
)

// SummaryMaxEntries bounds how many memory entries (by importance,
// descending) feed into a rebuilt Session Summary (§4.4).
const SummaryMaxEntries = 20

var typeLabels = map[model.MemoryType]string{
	model.MemoryDecision:    "Key decisions",
	model.MemoryRequirement: "Requirements",
	model.MemoryTask:        "Task log",
	model.MemoryIssue:       "Issues / bugs",
	model.MemorySummary:     "Phase summaries",
}

// Summary manages the derived, per-session rollup Markdown file that is
// rebuilt whenever a Memory Entry is saved (§4.4). It never reorders or
// edits entries itself — it is a pure projection of whatever the Store holds.
type Summary struct {
	dir string
}

// NewSummary returns a Summary manager rooted at dir, creating it if needed.
func NewSummary(dir string) (*Summary, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Persistence("creating summary directory", err)
	}
	return &Summary{dir: dir}, nil
}

func (s *Summary) path(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("summary_%s.md", sessionID))
}

// Read returns the current summary text for sessionID, or "" if none exists yet.
func (s *Summary) Read(sessionID string) string {
	raw, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// Rebuild regenerates the summary file from the current set of memory
// entries: sort by importance descending, take the top SummaryMaxEntries,
// group by type in the fixed order [decision, requirement, task, issue,
// summary], and emit one Markdown header per non-empty group. The write is
// atomic (write-temp-then-rename) so a reader never observes a partial file.
func (s *Summary) Rebuild(sessionID string, entries []model.MemoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]model.MemoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if len(sorted) > SummaryMaxEntries {
		sorted = sorted[:SummaryMaxEntries]
	}

	groups := make(map[model.MemoryType][]string)
	for _, e := range sorted {
		groups[e.Type] = append(groups[e.Type], e.Content)
	}

	var b strings.Builder
	b.WriteString("# Current session summary\n\n")
	for _, t := range model.MemoryTypeOrder {
		items := groups[t]
		if len(items) == 0 {
			continue
		}
		b.WriteString("## " + typeLabels[t] + "\n")
		for _, item := range items {
			b.WriteString("- " + item + "\n")
		}
		b.WriteString("\n")
	}

	return s.writeAtomic(sessionID, []byte(strings.TrimRight(b.String(), "\n")+"\n"))
}

func (s *Summary) writeAtomic(sessionID string, content []byte) error {
	finalPath := s.path(sessionID)
	tmp, err := os.CreateTemp(s.dir, "summary_*.tmp")
	if err != nil {
		return apperrors.Persistence("creating temp summary file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.Persistence("writing temp summary file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.Persistence("closing temp summary file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return apperrors.Persistence("renaming temp summary file", err)
	}
	return nil
}
