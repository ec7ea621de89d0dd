package ws

import (
	"sync"

	domainuser "talenthub/internal/domain/user"
)

// Session is one live connection bound to an authenticated user. The concrete
// websocket client implements it; tests substitute fakes.
type Session interface {
	UserID() domainuser.ID
	Send(event Event)
}

// Channel keys. A session always sits in its personal channel and joins
// conversation channels on demand.
func PersonalChannel(id domainuser.ID) string { return "user:" + string(id) }
func ConversationChannel(id string) string    { return "conversation:" + id }

// Registry tracks which sessions are subscribed to which broadcast channels.
// It is the only place channel membership is mutated; services never touch
// it. The capability surface (Subscribe/Unsubscribe/MembersOf) keeps the
// door open for a distributed pub/sub backing later.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Session]struct{}
	sessions map[Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[Session]struct{}),
		sessions: make(map[Session]map[string]struct{}),
	}
}

func (r *Registry) Subscribe(channel string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[Session]struct{})
	}
	r.channels[channel][s] = struct{}{}
	if r.sessions[s] == nil {
		r.sessions[s] = make(map[string]struct{})
	}
	r.sessions[s][channel] = struct{}{}
}

func (r *Registry) Unsubscribe(channel string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(channel, s)
}

// UnsubscribeAll drops the session from every channel, returning the channels
// it was subscribed to so the caller can announce the departure.
func (r *Registry) UnsubscribeAll(s Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels := make([]string, 0, len(r.sessions[s]))
	for channel := range r.sessions[s] {
		channels = append(channels, channel)
	}
	for _, channel := range channels {
		r.removeLocked(channel, s)
	}
	return channels
}

func (r *Registry) removeLocked(channel string, s Session) {
	if set, ok := r.channels[channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.channels, channel)
		}
	}
	if set, ok := r.sessions[s]; ok {
		delete(set, channel)
		if len(set) == 0 {
			delete(r.sessions, s)
		}
	}
}

func (r *Registry) MembersOf(channel string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.channels[channel]))
	for s := range r.channels[channel] {
		out = append(out, s)
	}
	return out
}

// Subscribed reports whether the session is currently in the channel.
func (r *Registry) Subscribed(channel string, s Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[channel][s]
	return ok
}

// Broadcast sends the event to every member of the channel, optionally
// skipping one session (usually the originator).
func (r *Registry) Broadcast(channel string, event Event, skip Session) {
	for _, member := range r.MembersOf(channel) {
		if member == skip {
			continue
		}
		member.Send(event)
	}
}
