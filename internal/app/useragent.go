package app

import (
	"sync"

	"github.com/yourusername/media-proxy-go/internal/domain"
)

// UserAgentRotator cycles through a fixed list of User-Agent strings.
// It is safe for concurrent use.
type UserAgentRotator struct {
	agents []string
	cursor int
	mu     sync.Mutex
}

// NewUserAgentRotator creates a rotator positioned at the first agent.
// An empty list falls back to domain.DefaultUserAgents.
func NewUserAgentRotator(agents []string) *UserAgentRotator {
	if len(agents) == 0 {
		agents = domain.DefaultUserAgents
	}
	return &UserAgentRotator{agents: append([]string(nil), agents...)}
}

// Current returns the agent at the cursor without advancing it
func (r *UserAgentRotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.cursor]
}

// Next advances the cursor, wrapping after the last agent, and returns the
// agent it now points at
func (r *UserAgentRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = (r.cursor + 1) % len(r.agents)
	return r.agents[r.cursor]
}

// Len returns the number of agents in the rotation
func (r *UserAgentRotator) Len() int {
	return len(r.agents)
}
