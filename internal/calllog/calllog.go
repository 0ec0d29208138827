// Package calllog implements the Call Logger: an append-only JSON-lines
// trace of every agent invocation, one file per session (§4.6).
package calllog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/model"
)

// Logger appends and reads per-session JSONL call logs.
type Logger struct {
	dir     string
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
	log     *logging.Logger
}

// New returns a Logger rooted at dir, creating it if necessary.
func New(dir string, log *logging.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Persistence("creating call log directory", err)
	}
	if log == nil {
		log = logging.Default()
	}
	return &Logger{dir: dir, locks: make(map[string]*sync.Mutex), log: log}, nil
}

func (l *Logger) sessionFile(sessionID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("session_%s.jsonl", sessionID))
}

func (l *Logger) sessionLock(sessionID string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	return lock
}

// Save appends one call log entry to its session's file.
func (l *Logger) Save(entry model.CallLogEntry) error {
	lock := l.sessionLock(entry.SessionID)
	lock.Lock()
	defer lock.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Persistence("marshaling call log entry", err)
	}

	f, err := os.OpenFile(l.sessionFile(entry.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return apperrors.Persistence("opening call log file", err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return apperrors.Persistence("appending call log entry", err)
	}

	l.log.WithAgentID(entry.AgentID).WithTurnID(entry.TurnID).Debug("calllog: saved entry")
	return nil
}

// GetSessionLogs reads every entry for sessionID and returns them newest
// first. Malformed lines are skipped, not fatal.
func (l *Logger) GetSessionLogs(sessionID string) ([]model.CallLogEntry, error) {
	path := l.sessionFile(sessionID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Persistence("opening call log file", err)
	}
	defer f.Close()

	var entries []model.CallLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry model.CallLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			l.log.WithError(err).Warn("calllog: skipping malformed line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Persistence("scanning call log file", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
