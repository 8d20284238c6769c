package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/quiz"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/room"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

func testCreate(h *Hub, code string) chan *room.Room {
	lobby := types.LobbyData{
		RoomCode:           code,
		HostID:             "h1",
		QuestionDuration:   10,
		TotalQuestionCount: 1,
		OptionCount:        4,
	}
	questions := []types.Question{
		{English: "apple", CorrectMeaning: "elma", Options: []string{"elma", "su"}},
	}
	reply := make(chan *room.Room, 1)
	h.Inbox() <- CreateRoom{
		Lobby:  lobby,
		Engine: quiz.NewEngine(questions, lobby.QuestionDuration),
		Host:   types.Player{ID: "h1", Name: "host"},
		Reply:  reply,
	}
	return reply
}

func TestHubCreateGetSamePointer(t *testing.T) {
	h := NewHub(context.Background(), zaptest.NewLogger(t))
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })

	r1 := <-testCreate(h, "ZED123")
	require.NotNil(t, r1)

	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{Code: "ZED123", Reply: reply}
	r2 := <-reply

	assert.Same(t, r1, r2)
	assert.Same(t, r1, h.Room("ZED123"))
}

func TestHubCreateExistingCodeReturnsExisting(t *testing.T) {
	h := NewHub(context.Background(), zaptest.NewLogger(t))
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })

	r1 := <-testCreate(h, "ZED123")
	r2 := <-testCreate(h, "ZED123")
	assert.Same(t, r1, r2)
}

func TestHubRemoveRoom(t *testing.T) {
	h := NewHub(context.Background(), zaptest.NewLogger(t))
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })

	<-testCreate(h, "ZED123")
	h.Inbox() <- RemoveRoom{Code: "ZED123"}

	assert.Nil(t, h.Room("ZED123"))
}

func TestHubGetUnknownCodeIsNil(t *testing.T) {
	h := NewHub(context.Background(), zaptest.NewLogger(t))
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })

	assert.Nil(t, h.Room("NOPE99"))
}
