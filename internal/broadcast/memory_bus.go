package broadcast

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agentarena/arena/internal/logging"
)

// MemoryBus implements Bus with in-process channels. It is the default
// transport: every subscriber in the same process is delivered to
// directly, with no network hop.
type MemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[string][]*memorySubscription
	closed        bool
	log           *logging.Logger
}

type memorySubscription struct {
	bus     *MemoryBus
	subject string
	pattern *regexp.Regexp
	handler Handler
	mu      sync.Mutex
	active  bool
}

// NewMemoryBus creates a new in-memory Bus.
func NewMemoryBus(log *logging.Logger) *MemoryBus {
	if log == nil {
		log = logging.Default()
	}
	return &MemoryBus{
		subscriptions: make(map[string][]*memorySubscription),
		log:           log,
	}
}

// Publish delivers event to every subscription whose subject matches, each
// on its own goroutine so a slow or blocking handler never stalls the
// publisher (§5: broadcast sends are a suspension point, not a barrier).
func (b *MemoryBus) Publish(subj string, event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	for pattern, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.mu.Lock()
			active := sub.active
			sub.mu.Unlock()
			if !active {
				continue
			}
			if !matches(subj, pattern, sub.pattern) {
				continue
			}
			go func(s *memorySubscription, e *Event) {
				if err := s.handler(e); err != nil {
					b.log.WithError(err).Warn("broadcast: subscriber handler failed, removing subscription")
					_ = s.Unsubscribe()
				}
			}(sub, event)
		}
	}
	return nil
}

// Subscribe registers handler against a subject pattern.
func (b *MemoryBus) Subscribe(subj string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}

	sub := &memorySubscription{
		bus:     b,
		subject: subj,
		pattern: compilePattern(subj),
		handler: handler,
		active:  true,
	}
	b.subscriptions[subj] = append(b.subscriptions[subj], sub)
	return sub, nil
}

// Close deactivates every subscription and marks the bus closed.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		}
	}
	b.subscriptions = make(map[string][]*memorySubscription)
}

// IsConnected always reports true while the bus isn't closed.
func (b *MemoryBus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

func (s *memorySubscription) Unsubscribe() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subscriptions[s.subject]
	for i, sub := range subs {
		if sub == s {
			s.bus.subscriptions[s.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memorySubscription) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// matches reports whether subj satisfies pattern, supporting a single
// trailing "*" token (this package's only wildcard need).
func matches(subj, pattern string, regex *regexp.Regexp) bool {
	if !strings.Contains(pattern, "*") {
		return subj == pattern
	}
	if regex != nil {
		return regex.MatchString(subj)
	}
	return false
}

func compilePattern(pattern string) *regexp.Regexp {
	if !strings.Contains(pattern, "*") {
		return nil
	}
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^.]+`)
	escaped = "^" + escaped + "$"
	regex, err := regexp.Compile(escaped)
	if err != nil {
		return nil
	}
	return regex
}
