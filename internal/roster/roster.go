// Package roster tracks the players of one room on the client side. The list
// is only ever replaced wholesale from a playersUpdate/rankings/gameEnded
// broadcast or an initial REST fetch; playerJoined/playerLeft notifications
// are log-only signals that a fresh broadcast is on the way.
package roster

import (
	"sort"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

type Tracker struct {
	players []types.Player
	hostID  string
}

func NewTracker(hostID string) *Tracker {
	return &Tracker{hostID: hostID}
}

// Replace swaps the whole list. Stale entries never survive a broadcast.
func (t *Tracker) Replace(players []types.Player) {
	t.players = make([]types.Player, len(players))
	copy(t.players, players)
}

func (t *Tracker) Len() int { return len(t.players) }

// Players returns the list in arrival order.
func (t *Tracker) Players() []types.Player {
	out := make([]types.Player, len(t.players))
	copy(out, t.players)
	return out
}

// Get looks a player up by id.
func (t *Tracker) Get(id string) (types.Player, bool) {
	for _, p := range t.players {
		if p.ID == id {
			return p, true
		}
	}
	return types.Player{}, false
}

// HasName reports whether any player already uses the given display name.
func (t *Tracker) HasName(name string) bool {
	for _, p := range t.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HostFirst returns a display ordering with the host relocated to index 0
// and everyone else keeping arrival order.
func (t *Tracker) HostFirst() []types.Player {
	out := make([]types.Player, 0, len(t.players))
	for _, p := range t.players {
		if p.ID == t.hostID {
			out = append([]types.Player{p}, out...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// ByScore returns a display ordering sorted descending by score, for the
// ranking and final screens. Ties keep arrival order.
func (t *Tracker) ByScore() []types.Player {
	out := t.Players()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
