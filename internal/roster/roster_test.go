package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

func TestReplaceIsWholesale(t *testing.T) {
	tr := NewTracker("h1")
	tr.Replace([]types.Player{{ID: "h1", Name: "host"}, {ID: "p2", Name: "zeynep"}})
	tr.Replace([]types.Player{{ID: "p3", Name: "ali"}})

	require.Equal(t, 1, tr.Len())
	_, ok := tr.Get("p2")
	assert.False(t, ok, "stale entries must not survive a broadcast")
}

func TestHostFirstOrdering(t *testing.T) {
	tr := NewTracker("h1")
	tr.Replace([]types.Player{
		{ID: "p2", Name: "zeynep"},
		{ID: "h1", Name: "host"},
		{ID: "p3", Name: "ali"},
	})

	got := tr.HostFirst()
	require.Len(t, got, 3)
	assert.Equal(t, "h1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID, "non-hosts keep arrival order")
	assert.Equal(t, "p3", got[2].ID)
}

func TestByScoreDescending(t *testing.T) {
	tr := NewTracker("h1")
	tr.Replace([]types.Player{
		{ID: "a", Score: 100},
		{ID: "b", Score: 300},
		{ID: "c", Score: 300},
		{ID: "d", Score: 0},
	})

	got := tr.ByScore()
	assert.Equal(t, []string{"b", "c", "a", "d"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID},
		"descending by score, ties keep arrival order")
}

func TestHasName(t *testing.T) {
	tr := NewTracker("h1")
	tr.Replace([]types.Player{{ID: "p1", Name: "ayşe"}})
	assert.True(t, tr.HasName("ayşe"))
	assert.False(t, tr.HasName("fatma"))
}

func TestReplaceCopiesInput(t *testing.T) {
	tr := NewTracker("h1")
	in := []types.Player{{ID: "p1", Score: 10}}
	tr.Replace(in)
	in[0].Score = 999

	p, ok := tr.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 10, p.Score)
}
