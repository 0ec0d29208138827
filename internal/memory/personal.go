package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentarena/arena/internal/apperrors"
)

// Character budgets for the personal-memory layers injected into the merged
// memory context (§4.2). These are the original source's exact constants;
// they are approximations of a token budget, not a token count (§9).
const (
	PersonalProfileMaxChars = 2400
	DailyLogMaxChars        = 1600
)

const truncationSuffix = "\n...(truncated)"

// Personal reads and writes an agent's per-workspace long-term profile
// (`MEMORY.md`) and daily append logs (`memory/YYYY-MM-DD.md`). Concurrent
// appends to the same agent's log must serialize (§5); Personal keys its
// lock by workspace directory since that is the unit the spec names
// ("per `agent_id`", realized here as one workspace per agent).
type Personal struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	nowFunc func() time.Time
}

// NewPersonal returns a Personal reader/writer.
func NewPersonal() *Personal {
	return &Personal{locks: make(map[string]*sync.Mutex), nowFunc: time.Now}
}

func (p *Personal) workspaceLock(workspaceDir string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[workspaceDir]
	if !ok {
		l = &sync.Mutex{}
		p.locks[workspaceDir] = l
	}
	return l
}

// ReadContext reads MEMORY.md plus today's and yesterday's daily logs under
// workspaceDir, truncates each to its character budget, and joins the
// non-empty parts with a blank line. Returns "" if nothing is present.
func (p *Personal) ReadContext(workspaceDir string) string {
	var parts []string

	memoryMD := filepath.Join(workspaceDir, "MEMORY.md")
	if text := readTrimmed(memoryMD); text != "" {
		parts = append(parts, "### Personal long-term memory\n"+truncate(text, PersonalProfileMaxChars))
	}

	now := p.nowFunc()
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		dateStr := day.Format("2006-01-02")
		logFile := filepath.Join(workspaceDir, "memory", dateStr+".md")
		if text := readTrimmed(logFile); text != "" {
			parts = append(parts, fmt.Sprintf("### %s work log\n%s", dateStr, truncate(text, DailyLogMaxChars)))
		}
	}

	return strings.Join(parts, "\n\n")
}

// AppendDailyLog appends a timestamped line to today's log file under
// workspaceDir, creating the memory/ directory if needed.
func (p *Personal) AppendDailyLog(workspaceDir, content string) error {
	lock := p.workspaceLock(workspaceDir)
	lock.Lock()
	defer lock.Unlock()

	memDir := filepath.Join(workspaceDir, "memory")
	if err := os.MkdirAll(memDir, 0755); err != nil {
		return apperrors.Persistence("creating agent memory directory", err)
	}

	now := p.nowFunc()
	logFile := filepath.Join(memDir, now.Format("2006-01-02")+".md")
	entry := fmt.Sprintf("\n- [%s] %s\n", now.Format("15:04"), strings.TrimSpace(content))

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return apperrors.Persistence("opening daily log file", err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		return apperrors.Persistence("appending to daily log file", err)
	}
	return nil
}

// InitWorkspace creates the memory/ directory and a starter MEMORY.md (if
// one is not already present) for a newly onboarded agent.
func (p *Personal) InitWorkspace(workspaceDir, agentName string) error {
	memDir := filepath.Join(workspaceDir, "memory")
	if err := os.MkdirAll(memDir, 0755); err != nil {
		return apperrors.Persistence("creating agent memory directory", err)
	}

	memoryMD := filepath.Join(workspaceDir, "MEMORY.md")
	if _, err := os.Stat(memoryMD); os.IsNotExist(err) {
		template := fmt.Sprintf(
			"# %s - personal long-term memory\n\n> Cross-session experience, decisions, and insights can be recorded here.\n> <!--PERSONAL_LOG:--> markers are appended to memory/YYYY-MM-DD.md, not to this file.\n\n",
			agentName,
		)
		if err := os.WriteFile(memoryMD, []byte(template), 0644); err != nil {
			return apperrors.Persistence("writing starter MEMORY.md", err)
		}
	}
	return nil
}

func readTrimmed(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + truncationSuffix
}
