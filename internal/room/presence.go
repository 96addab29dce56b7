package room

import (
	"sort"
	"time"

	"polyform-sync/internal/domain"
)

// Presence tracks the last presence broadcast of every peer session.
// Entries are overwritten per session and removed when the session leaves.
type Presence struct {
	peers map[string]domain.Presence
}

func NewPresence() *Presence {
	return &Presence{peers: make(map[string]domain.Presence)}
}

func (p *Presence) Record(entry domain.Presence) {
	if entry.SessionID == "" {
		return
	}
	p.peers[entry.SessionID] = entry
}

func (p *Presence) Has(sessionID string) bool {
	_, ok := p.peers[sessionID]
	return ok
}

func (p *Presence) Remove(sessionID string) bool {
	if _, ok := p.peers[sessionID]; !ok {
		return false
	}
	delete(p.peers, sessionID)
	return true
}

// ActiveLanguages is the set of languages in the room: every peer's plus
// the viewer's own. The result is sorted.
func (p *Presence) ActiveLanguages(own string) []string {
	set := map[string]struct{}{}
	if own != "" {
		set[own] = struct{}{}
	}
	for _, peer := range p.peers {
		if peer.Language != "" {
			set[peer.Language] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Peers returns the tracked sessions ordered by display name.
func (p *Presence) Peers() []domain.Presence {
	out := make([]domain.Presence, 0, len(p.peers))
	for _, peer := range p.peers {
		out = append(out, peer)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Stale lists sessions whose last broadcast is older than window at now.
// Callers decide whether to drop them.
func (p *Presence) Stale(now time.Time, window time.Duration) []string {
	cutoff := now.Add(-window).UnixMilli()
	var stale []string
	for id, peer := range p.peers {
		if peer.LastSeen < cutoff {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}
