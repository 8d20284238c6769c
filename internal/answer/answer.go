// Package answer guards answer delivery with an at-most-once-intent flag per
// question and fans the accepted answer out over both channels: the
// websocket command and the legacy REST fallback. The two sends race on
// purpose; the server deduplicates per (player, question), so the client
// never reconciles their outcomes.
package answer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/protocol"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/rest"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

// Sender is the websocket command channel. Sends are dropped silently while
// disconnected; the REST fallback below covers that window.
type Sender interface {
	Send(cmd protocol.Command)
}

// API is the REST slice the coordinator needs.
type API interface {
	SubmitAnswer(ctx context.Context, req rest.AnswerRequest) error
	Players(ctx context.Context, roomCode string) ([]types.Player, error)
}

type Coordinator struct {
	log      *zap.Logger
	sender   Sender
	api      API
	roomCode string
	playerID string

	// now is swappable for tests.
	now func() time.Time

	mu            sync.Mutex
	questionIndex int
	shownAt       time.Time
	submitted     bool
}

func NewCoordinator(log *zap.Logger, sender Sender, api API, roomCode, playerID string) *Coordinator {
	return &Coordinator{
		log:           log,
		sender:        sender,
		api:           api,
		roomCode:      roomCode,
		playerID:      playerID,
		now:           time.Now,
		questionIndex: -1,
	}
}

// BeginQuestion resets the idempotence guard for a new question and records
// when it was shown, so elapsed time is measured from display.
func (c *Coordinator) BeginQuestion(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questionIndex = index
	c.shownAt = c.now()
	c.submitted = false
}

// Submitted reports whether an answer has already been accepted for the
// current question.
func (c *Coordinator) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Submit delivers one answer for the current question. A second call for the
// same question index is a no-op and returns false. onRoster, when non-nil,
// receives the refetched player list after the REST fallback succeeds.
func (c *Coordinator) Submit(ctx context.Context, q types.Question, optionIndex int, onRoster func([]types.Player)) bool {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return false
	}
	c.submitted = true
	index := c.questionIndex
	elapsed := c.now().Sub(c.shownAt).Seconds()
	c.mu.Unlock()

	c.sender.Send(protocol.SubmitAnswer{
		RoomCode:       c.roomCode,
		PlayerID:       c.playerID,
		OptionIndex:    optionIndex,
		ElapsedSeconds: elapsed,
	})

	answerText := ""
	if optionIndex >= 0 && optionIndex < len(q.Options) {
		answerText = q.Options[optionIndex]
	}
	pickRate := 0.0
	if len(q.Options) > 0 {
		pickRate = 1.0 / float64(len(q.Options))
	}
	req := rest.AnswerRequest{
		RoomCode:       c.roomCode,
		PlayerID:       c.playerID,
		Answer:         answerText,
		ElapsedSeconds: elapsed,
		Correct:        optionIndex == q.CorrectIndex(),
		OptionPickRate: pickRate,
	}

	go func() {
		if err := c.api.SubmitAnswer(ctx, req); err != nil {
			c.log.Warn("rest answer fallback failed",
				zap.Int("question", index), zap.Error(err))
			return
		}
		players, err := c.api.Players(ctx, c.roomCode)
		if err != nil {
			c.log.Warn("roster refetch after answer failed", zap.Error(err))
			return
		}
		if onRoster != nil {
			onRoster(players)
		}
	}()
	return true
}
