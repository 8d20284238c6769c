// Package room is the authoritative game room on the loopback server. One
// goroutine owns each room; REST handlers, websocket readers, and phase
// timers all talk to it through the typed inbox. Write fan-out happens on
// pre-marshaled frames so every connection sees identical bytes.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/quiz"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

var (
	ErrGameStarted    = errors.New("game already started")
	ErrDuplicateName  = errors.New("player name already taken")
	ErrPasswordNeeded = errors.New("room password required")
	ErrWrongPassword  = errors.New("invalid room password")
)

type Msg interface{ isRoomMsg() }

// Attach registers a websocket connection's outbox. One player may hold
// several connections, a reconnect being the common case.
type Attach struct {
	ConnID   string
	PlayerID string
	Outbox   chan []byte
}

type Detach struct{ ConnID string }

// AddPlayer is the REST join path. Reply carries nil or a typed refusal.
type AddPlayer struct {
	Player   types.Player
	Password string
	Reply    chan error
}

type RemovePlayer struct{ PlayerID string }

type Start struct{ PlayerID string }

// Answer is the websocket submission, by option index.
type Answer struct {
	PlayerID    string
	OptionIndex int
	Elapsed     float64
}

// AnswerText is the REST submission, by meaning text. Both funnel into the
// same grading, so a duplicate across channels scores once.
type AnswerText struct {
	PlayerID string
	Answer   string
	Elapsed  float64
}

// Advance is the host action on the reveal or ranking screen.
type Advance struct{ PlayerID string }

type Disband struct{ PlayerID string }

type Shutdown struct{}

type GetPlayers struct{ Reply chan []types.Player }

type GetQuestions struct{ Reply chan []types.Question }

type StateView struct {
	Step          types.GameStep
	Index         int
	RemainingTime int
	Players       []types.Player
}

type GetState struct{ Reply chan StateView }

type Info struct {
	Lobby   types.LobbyData
	Players []types.Player
	Step    types.GameStep
}

type GetInfo struct{ Reply chan Info }

// timeout fires at the end of a phase. gen guards against stale timers.
type timeout struct{ gen int }

func (Attach) isRoomMsg()       {}
func (Detach) isRoomMsg()       {}
func (AddPlayer) isRoomMsg()    {}
func (RemovePlayer) isRoomMsg() {}
func (Start) isRoomMsg()        {}
func (Answer) isRoomMsg()       {}
func (AnswerText) isRoomMsg()   {}
func (Advance) isRoomMsg()      {}
func (Disband) isRoomMsg()      {}
func (Shutdown) isRoomMsg()     {}
func (GetPlayers) isRoomMsg()   {}
func (GetQuestions) isRoomMsg() {}
func (GetState) isRoomMsg()     {}
func (GetInfo) isRoomMsg()      {}
func (timeout) isRoomMsg()      {}

type sub struct {
	playerID string
	outbox   chan []byte
}

type Room struct {
	inbox chan Msg
	log   *zap.Logger

	lobby        types.LobbyData
	passwordHash []byte
	engine       *quiz.Engine

	players []types.Player
	conns   map[string]sub

	step      types.GameStep
	index     int
	nextIndex int
	phaseEnd  time.Time
	gen       int

	countdown time.Duration
	reveal    time.Duration
	unit      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Room)

// WithTimings overrides the countdown and reveal windows, in phase units.
func WithTimings(countdown, reveal time.Duration) Option {
	return func(r *Room) {
		r.countdown = countdown
		r.reveal = reveal
	}
}

// WithTimeUnit compresses one game second into d, for tests.
func WithTimeUnit(d time.Duration) Option {
	return func(r *Room) { r.unit = d }
}

func New(parent context.Context, log *zap.Logger, lobby types.LobbyData,
	passwordHash []byte, engine *quiz.Engine, host types.Player, opts ...Option) *Room {

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:        make(chan Msg, 64),
		log:          log.With(zap.String("room", lobby.RoomCode)),
		lobby:        lobby,
		passwordHash: passwordHash,
		engine:       engine,
		players:      []types.Player{host},
		conns:        make(map[string]sub),
		step:         types.StepLobby,
		countdown:    3 * time.Second,
		reveal:       5 * time.Second,
		unit:         time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Lobby() types.LobbyData { return r.lobby }

func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Attach:
				r.conns[msg.ConnID] = sub{playerID: msg.PlayerID, outbox: msg.Outbox}

			case Detach:
				if s, ok := r.conns[msg.ConnID]; ok {
					close(s.outbox)
					delete(r.conns, msg.ConnID)
				}

			case AddPlayer:
				msg.Reply <- r.addPlayer(msg.Player, msg.Password)

			case RemovePlayer:
				r.removePlayer(msg.PlayerID)

			case Start:
				r.start(msg.PlayerID)

			case Answer:
				if r.canAnswer(msg.PlayerID) {
					res, graded := r.engine.SubmitIndex(msg.PlayerID, r.index, msg.OptionIndex, msg.Elapsed)
					r.afterGrade(msg.PlayerID, res, graded)
				}

			case AnswerText:
				if r.canAnswer(msg.PlayerID) {
					res, graded := r.engine.SubmitText(msg.PlayerID, r.index, msg.Answer, msg.Elapsed)
					r.afterGrade(msg.PlayerID, res, graded)
				}

			case Advance:
				r.advance(msg.PlayerID)

			case Disband:
				if msg.PlayerID != r.lobby.HostID {
					break
				}
				r.finish()
				r.shutdown()
				return

			case GetPlayers:
				msg.Reply <- r.scoredPlayers()

			case GetQuestions:
				msg.Reply <- r.engine.Questions()

			case GetState:
				msg.Reply <- StateView{
					Step:          r.step,
					Index:         r.index,
					RemainingTime: r.remainingSeconds(),
					Players:       r.scoredPlayers(),
				}

			case GetInfo:
				msg.Reply <- Info{Lobby: r.lobby, Players: r.scoredPlayers(), Step: r.step}

			case timeout:
				if msg.gen != r.gen {
					break
				}
				r.phaseTimeout()

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) addPlayer(p types.Player, password string) error {
	if r.step != types.StepLobby {
		return ErrGameStarted
	}
	if len(r.passwordHash) > 0 {
		if password == "" {
			return ErrPasswordNeeded
		}
		if bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) != nil {
			return ErrWrongPassword
		}
	}
	for _, existing := range r.players {
		if existing.Name == p.Name {
			return ErrDuplicateName
		}
	}
	r.players = append(r.players, p)
	r.broadcast(types.ServerMessage{Type: "playerJoined", ID: p.ID, Name: p.Name})
	r.broadcastRoster()
	return nil
}

func (r *Room) removePlayer(playerID string) {
	for i, p := range r.players {
		if p.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			r.broadcast(types.ServerMessage{Type: "playerLeft", ID: playerID})
			r.broadcastRoster()
			return
		}
	}
}

func (r *Room) start(playerID string) {
	if playerID != r.lobby.HostID || r.step != types.StepLobby {
		return
	}
	r.startCountdown(0)
}

// startCountdown opens the pre-question countdown; the phase timeout begins
// the question at nextIndex. Every question gets its own countdown.
func (r *Room) startCountdown(nextIndex int) {
	r.nextIndex = nextIndex
	r.setPhase(types.StepCountdown, r.countdown)
	r.broadcast(types.ServerMessage{
		Type:          "gameStateChanged",
		Step:          types.StepCountdown,
		RemainingTime: r.remainingSeconds(),
	})
}

func (r *Room) beginQuestion(index int) {
	q, ok := r.engine.Question(index)
	if !ok {
		r.finish()
		return
	}
	r.index = index
	r.setPhase(types.StepQuestion, time.Duration(r.lobby.QuestionDuration)*time.Second)
	r.broadcast(types.ServerMessage{Type: "question", Question: &q, Index: index})
	r.broadcast(types.ServerMessage{Type: "questionIndex", Index: index})
	r.broadcast(types.ServerMessage{
		Type:          "gameStateChanged",
		Step:          types.StepQuestion,
		RemainingTime: r.remainingSeconds(),
	})
}

// canAnswer gates a submission: the game must be in the question phase and
// the player must belong to the room.
func (r *Room) canAnswer(playerID string) bool {
	return r.step == types.StepQuestion && r.hasPlayer(playerID)
}

func (r *Room) afterGrade(playerID string, res quiz.Result, graded bool) {
	if !graded {
		return
	}
	correct := res.Correct
	r.unicast(playerID, types.ServerMessage{
		Type:         "answerResult",
		Correct:      &correct,
		CorrectIndex: res.CorrectIndex,
		ScoreDelta:   res.ScoreDelta,
	})
	r.broadcastRoster()
	if r.everyoneAnswered() {
		r.revealAnswer()
	}
}

func (r *Room) everyoneAnswered() bool {
	for _, p := range r.players {
		if !r.engine.Answered(p.ID, r.index) {
			return false
		}
	}
	return len(r.players) > 0
}

func (r *Room) revealAnswer() {
	r.setPhase(types.StepAnswerReveal, r.reveal)
	r.broadcast(types.ServerMessage{
		Type:          "gameStateChanged",
		Step:          types.StepAnswerReveal,
		RemainingTime: r.remainingSeconds(),
	})
	r.broadcast(types.ServerMessage{Type: "rankings", Players: r.rankedPlayers()})
}

func (r *Room) showRanking() {
	r.setPhase(types.StepRanking, 0)
	r.broadcast(types.ServerMessage{
		Type:          "gameStateChanged",
		Step:          types.StepRanking,
		RemainingTime: 0,
	})
	r.broadcast(types.ServerMessage{Type: "rankings", Players: r.rankedPlayers()})
}

func (r *Room) advance(playerID string) {
	if playerID != r.lobby.HostID {
		return
	}
	if r.step != types.StepAnswerReveal && r.step != types.StepRanking {
		return
	}
	if r.index+1 < r.engine.Len() {
		r.startCountdown(r.index + 1)
		return
	}
	r.finish()
}

func (r *Room) phaseTimeout() {
	switch r.step {
	case types.StepCountdown:
		r.beginQuestion(r.nextIndex)
	case types.StepQuestion:
		r.revealAnswer()
	case types.StepAnswerReveal:
		if r.index+1 < r.engine.Len() {
			r.showRanking()
			return
		}
		r.finish()
	}
}

func (r *Room) finish() {
	if r.step == types.StepFinal {
		return
	}
	r.setPhase(types.StepFinal, 0)
	r.broadcast(types.ServerMessage{Type: "gameEnded", Players: r.rankedPlayers()})
	r.broadcast(types.ServerMessage{
		Type: "gameStateChanged",
		Step: types.StepFinal,
	})
}

func (r *Room) setPhase(step types.GameStep, d time.Duration) {
	r.step = step
	r.gen++
	if d <= 0 {
		r.phaseEnd = time.Time{}
		return
	}
	scaled := time.Duration(float64(d) / float64(time.Second) * float64(r.unit))
	r.phaseEnd = time.Now().Add(d)
	gen := r.gen
	time.AfterFunc(scaled, func() { r.post(timeout{gen: gen}) })
}

func (r *Room) remainingSeconds() int {
	if r.phaseEnd.IsZero() {
		return 0
	}
	rem := int(time.Until(r.phaseEnd).Round(time.Second) / time.Second)
	if rem < 0 {
		rem = 0
	}
	return rem
}

func (r *Room) hasPlayer(playerID string) bool {
	for _, p := range r.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (r *Room) scoredPlayers() []types.Player {
	return r.engine.ApplyScores(r.players)
}

func (r *Room) rankedPlayers() []types.Player {
	players := r.scoredPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
	return players
}

func (r *Room) broadcastRoster() {
	r.broadcast(types.ServerMessage{Type: "playersUpdate", Players: r.scoredPlayers()})
}

func (r *Room) broadcast(msg types.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshaling broadcast failed", zap.Error(err))
		return
	}
	for id, s := range r.conns {
		select {
		case s.outbox <- frame:
		default:
			// Connection is slow/full - drop it.
			close(s.outbox)
			delete(r.conns, id)
		}
	}
}

func (r *Room) unicast(playerID string, msg types.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshaling unicast failed", zap.Error(err))
		return
	}
	for id, s := range r.conns {
		if s.playerID != playerID {
			continue
		}
		select {
		case s.outbox <- frame:
		default:
			close(s.outbox)
			delete(r.conns, id)
		}
	}
}

func (r *Room) shutdown() {
	r.gen++
	for id, s := range r.conns {
		close(s.outbox)
		delete(r.conns, id)
	}
	r.cancel()
}
