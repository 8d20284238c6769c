// Package session mirrors the server-authoritative game state on the client.
// One goroutine owns all state. Decoded server events, user actions, and
// timer ticks all arrive through the typed inbox and are applied in order.
// Subscribers receive versioned snapshots and are dropped when slow.
//
// The server step is adopted verbatim. The only local deviations are the two
// provisional shortcuts: countdown→question when the countdown animation
// finishes before the server update, and →final after the last question's
// reveal. Both are overwritten by the next authoritative event.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/answer"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/protocol"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/roster"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

type Msg interface{ isSessionMsg() }

// FromServer wraps one decoded inbound event.
type FromServer struct {
	Event protocol.Event
}

type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

type Unsubscribe struct{ ID string }

// CountdownDone is the UI-driven optimistic transition: the countdown
// animation finished client-side before the server's question update landed.
type CountdownDone struct{}

// Submit is the user's answer for the current question.
type Submit struct {
	OptionIndex int
}

// Next is the user's action on the reveal screen.
type Next struct{}

type Shutdown struct{}

type GetState struct {
	Reply chan View
}

// rosterFetched carries the roster refetched after a successful REST answer
// fallback back onto the session goroutine.
type rosterFetched struct {
	Players []types.Player
}

type tick struct {
	gen int
}

func (FromServer) isSessionMsg()    {}
func (Subscribe) isSessionMsg()     {}
func (Unsubscribe) isSessionMsg()   {}
func (CountdownDone) isSessionMsg() {}
func (Submit) isSessionMsg()        {}
func (Next) isSessionMsg()          {}
func (Shutdown) isSessionMsg()      {}
func (GetState) isSessionMsg()      {}
func (rosterFetched) isSessionMsg() {}
func (tick) isSessionMsg()          {}

// Feedback is the per-question result shown after answering. Cleared on
// every question or countdown step change.
type Feedback struct {
	Selected     *int
	Correct      *bool
	CorrectIndex *int
	ScoreDelta   int
}

// Snapshot is what the UI renders. Question is nil when the current index
// has not been received yet; the UI shows a placeholder rather than failing.
type Snapshot struct {
	Version       int
	Step          types.GameStep
	Provisional   bool
	QuestionIndex int
	Question      *types.Question
	RemainingTime int
	Feedback      Feedback
	Players       []types.Player
	Submitted     bool
}

// View reflects internal state for tests without data races.
type View struct {
	Snapshot
	NumSubscribers int
}

// NextCaller is the REST slice used for the fire-and-forget next call.
type NextCaller interface {
	Next(ctx context.Context, roomCode, playerID string) error
}

type Session struct {
	inbox    chan Msg
	log      *zap.Logger
	lobby    types.LobbyData
	playerID string
	coord    *answer.Coordinator
	api      NextCaller

	roster      *roster.Tracker
	subs        map[string]chan Snapshot
	version     int
	step        types.GameStep
	provisional bool
	questions   []*types.Question
	current     int
	remaining   int
	timerGen    int
	tickEvery   time.Duration
	feedback    Feedback

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Session)

// WithTickInterval shortens the local one-second timer, for tests.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickEvery = d }
}

func New(parent context.Context, log *zap.Logger, lobby types.LobbyData, playerID string,
	coord *answer.Coordinator, api NextCaller, initialPlayers []types.Player, opts ...Option) *Session {

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, 64),
		log:       log,
		lobby:     lobby,
		playerID:  playerID,
		coord:     coord,
		api:       api,
		roster:    roster.NewTracker(lobby.HostID),
		subs:      make(map[string]chan Snapshot),
		step:      types.StepLobby,
		tickEvery: time.Second,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.roster.Replace(initialPlayers)
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// Inbox exposes the actor mailbox to the transport layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// HandleEvent adapts the connection manager's callback to the inbox.
func (s *Session) HandleEvent(ev protocol.Event) {
	s.post(FromServer{Event: ev})
}

func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Subscribe:
				s.subs[msg.ID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Unsubscribe:
				delete(s.subs, msg.ID)

			case FromServer:
				s.applyEvent(msg.Event)

			case CountdownDone:
				if s.step == types.StepCountdown {
					s.step = types.StepQuestion
					s.provisional = true
					s.broadcast()
				}

			case Submit:
				s.applySubmit(msg.OptionIndex)

			case Next:
				s.applyNext()

			case rosterFetched:
				s.roster.Replace(msg.Players)
				s.broadcast()

			case tick:
				if msg.gen != s.timerGen {
					break
				}
				s.remaining--
				if s.remaining < 0 {
					s.remaining = 0
				}
				if s.remaining > 0 {
					s.armTick()
				}
				s.broadcast()

			case GetState:
				msg.Reply <- View{Snapshot: s.snapshot(), NumSubscribers: len(s.subs)}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) applyEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.EventStateChanged:
		if s.step == types.StepFinal {
			// final is terminal; late events cannot resurrect the game.
			return
		}
		s.step = e.Step
		s.provisional = false
		s.resetTimer(e.RemainingTime)
		if e.Step == types.StepQuestion || e.Step == types.StepCountdown {
			s.feedback = Feedback{}
			s.coord.BeginQuestion(s.current)
		}
		s.broadcast()

	case protocol.EventQuestion:
		// Question payloads only fill the sparse store. The current pointer
		// moves on questionIndex, so an early payload cannot hijack it.
		s.storeQuestion(e.Question, e.Index)
		if e.Index == s.current {
			s.coord.BeginQuestion(e.Index)
		}
		s.broadcast()

	case protocol.EventQuestions:
		s.questions = make([]*types.Question, len(e.Questions))
		for i := range e.Questions {
			q := e.Questions[i]
			s.questions[i] = &q
		}
		s.broadcast()

	case protocol.EventQuestionIndex:
		if e.Index != s.current {
			s.current = e.Index
			s.feedback = Feedback{}
			s.coord.BeginQuestion(e.Index)
		}
		s.broadcast()

	case protocol.EventAnswerResult:
		correct := e.Correct
		correctIndex := e.CorrectIndex
		s.feedback.Correct = &correct
		s.feedback.CorrectIndex = &correctIndex
		s.feedback.ScoreDelta = e.ScoreDelta
		s.broadcast()

	case protocol.EventRankings:
		s.roster.Replace(e.Players)
		s.broadcast()

	case protocol.EventPlayersUpdate:
		s.roster.Replace(e.Players)
		s.broadcast()

	case protocol.EventGameEnded:
		s.roster.Replace(e.Players)
		s.step = types.StepFinal
		s.provisional = false
		s.resetTimer(0)
		s.broadcast()

	case protocol.EventPlayerJoined:
		// Log-only signal; the roster waits for the playersUpdate broadcast.
		s.log.Info("player joined", zap.String("id", e.ID), zap.String("name", e.Name))

	case protocol.EventPlayerLeft:
		s.log.Info("player left", zap.String("id", e.ID))

	case protocol.EventGeneric:
		s.log.Debug("unhandled message", zap.String("type", e.Type))

	case protocol.EventError:
		s.log.Warn("protocol error", zap.String("message", e.Message))
	}
}

func (s *Session) applySubmit(optionIndex int) {
	if s.step != types.StepQuestion {
		return
	}
	q := s.question(s.current)
	if q == nil {
		s.log.Warn("submit with no question loaded", zap.Int("index", s.current))
		return
	}
	accepted := s.coord.Submit(s.ctx, *q, optionIndex, func(players []types.Player) {
		s.post(rosterFetched{Players: players})
	})
	if !accepted {
		return
	}
	idx := optionIndex
	s.feedback.Selected = &idx
	s.broadcast()
}

func (s *Session) applyNext() {
	if s.step != types.StepAnswerReveal && s.step != types.StepRanking {
		return
	}
	s.feedback = Feedback{}
	if s.current+1 < s.lobby.TotalQuestionCount {
		go func() {
			if err := s.api.Next(s.ctx, s.lobby.RoomCode, s.playerID); err != nil {
				s.log.Warn("next call failed", zap.Error(err))
			}
		}()
		s.broadcast()
		return
	}
	// No questions remain: local terminal shortcut. gameEnded reaches final
	// idempotently if the server still sends it.
	s.step = types.StepFinal
	s.provisional = true
	s.resetTimer(0)
	s.broadcast()
}

func (s *Session) storeQuestion(q types.Question, index int) {
	if index < 0 {
		return
	}
	for len(s.questions) <= index {
		s.questions = append(s.questions, nil)
	}
	s.questions[index] = &q
}

func (s *Session) question(index int) *types.Question {
	if index < 0 || index >= len(s.questions) {
		return nil
	}
	return s.questions[index]
}

func (s *Session) resetTimer(remaining int) {
	s.timerGen++
	if remaining < 0 {
		remaining = 0
	}
	s.remaining = remaining
	s.armTick()
}

func (s *Session) armTick() {
	if s.remaining <= 0 {
		return
	}
	gen := s.timerGen
	time.AfterFunc(s.tickEvery, func() { s.post(tick{gen: gen}) })
}

func (s *Session) snapshot() Snapshot {
	var players []types.Player
	switch s.step {
	case types.StepRanking, types.StepFinal:
		players = s.roster.ByScore()
	default:
		players = s.roster.HostFirst()
	}
	return Snapshot{
		Version:       s.version,
		Step:          s.step,
		Provisional:   s.provisional,
		QuestionIndex: s.current,
		Question:      s.question(s.current),
		RemainingTime: s.remaining,
		Feedback:      s.feedback,
		Players:       players,
		Submitted:     s.coord.Submitted(),
	}
}

func (s *Session) broadcast() {
	s.version++
	snap := s.snapshot()
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	s.timerGen++
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}
