// Package memory implements the Memory Plane: a per-session structured
// entry store with keyword-scored retrieval (Store), a per-agent long-term
// profile plus daily log reader/writer (Personal), and a derived rollup
// (Summary) rebuilt whenever an entry is saved.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/model"
)

// Store persists Memory Entries one JSON file per session
// (`session_<id>.json`) and serves keyword-overlap + importance-weighted
// retrieval. Concurrent writers to the same session are serialized by a
// per-session mutex, per the spec's shared-resource policy (§5).
type Store struct {
	dir     string
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Persistence("creating memory store directory", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *Store) sessionFile(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("session_%s.json", sessionID))
}

// Save appends a Memory Entry to the given session, assigning an EntryID and
// SessionID if not already set.
func (s *Store) Save(sessionID string, entry model.MemoryEntry) (model.MemoryEntry, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	entry.SessionID = sessionID
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}

	entries, err := s.loadEntriesLocked(sessionID)
	if err != nil {
		return model.MemoryEntry{}, err
	}
	entries = append(entries, entry)
	if err := s.writeEntriesLocked(sessionID, entries); err != nil {
		return model.MemoryEntry{}, err
	}
	return entry, nil
}

// GetAll returns every entry recorded for sessionID, in insertion order.
func (s *Store) GetAll(sessionID string) ([]model.MemoryEntry, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadEntriesLocked(sessionID)
}

type scoredEntry struct {
	score float64
	index int
	entry model.MemoryEntry
}

// Search scores every entry against query by keyword overlap + importance
// and returns the top-k entries with positive score (§4.4).
//
// score = 0.5 * |query_tokens ∩ content_tokens| + 0.5 * importance
//
// Ties are broken by insertion order (stable sort keeps the original index
// as the deterministic tiebreak).
func (s *Store) Search(sessionID, query string, topK int) ([]model.MemoryEntry, error) {
	entries, err := s.GetAll(sessionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	queryTokens := tokenize(query)
	scored := make([]scoredEntry, 0, len(entries))
	for i, e := range entries {
		contentTokens := tokenize(e.Content)
		overlap := len(intersect(queryTokens, contentTokens))
		score := float64(overlap)*0.5 + e.Importance*0.5
		if score > 0 {
			scored = append(scored, scoredEntry{score: score, index: i, entry: e})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})

	if topK <= 0 {
		topK = 5
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}

	out := make([]model.MemoryEntry, len(scored))
	for i, se := range scored {
		out[i] = se.entry
	}
	return out, nil
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s *Store) loadEntriesLocked(sessionID string) ([]model.MemoryEntry, error) {
	path := s.sessionFile(sessionID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Persistence("reading memory store file", err)
	}
	var entries []model.MemoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperrors.Parse("parsing memory store file", err)
	}
	return entries, nil
}

func (s *Store) writeEntriesLocked(sessionID string, entries []model.MemoryEntry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.Persistence("marshaling memory entries", err)
	}
	path := s.sessionFile(sessionID)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return apperrors.Persistence("writing memory store file", err)
	}
	return nil
}
