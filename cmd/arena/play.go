package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/answer"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/config"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/conn"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/protocol"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/rest"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/session"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

func newPlayCmd(verbose *bool) *cobra.Command {
	cfg := config.Play{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join (or create) a room and play a full game as a bot.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runPlay(cmd.Context(), log, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.ServerURL, "server", "s", "http://localhost:8080", "arena server base url (env: ARENA_SERVER)")
	fs.StringVarP(&cfg.PlayerName, "name", "n", "bot", "player name (env: ARENA_NAME)")
	fs.StringVarP(&cfg.RoomCode, "room", "r", "", "room code to join; empty creates a new room (env: ARENA_ROOM)")
	fs.StringVar(&cfg.Password, "password", "", "room password (env: ARENA_PASSWORD)")
	fs.StringVarP(&cfg.Level, "level", "l", "B1", "word level when creating a room (env: ARENA_LEVEL)")
	fs.IntVarP(&cfg.Questions, "questions", "q", 5, "question count when creating a room (env: ARENA_QUESTIONS)")

	return cmd
}

func runPlay(parent context.Context, log *zap.Logger, cfg config.Play) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := rest.NewClient(cfg.ServerURL, log)

	var (
		lobby   types.LobbyData
		player  string
		players []types.Player
	)
	if cfg.RoomCode == "" {
		resp, err := client.CreateRoom(ctx, rest.CreateRoomRequest{
			PlayerName:    cfg.PlayerName,
			Level:         cfg.Level,
			QuestionCount: cfg.Questions,
			Password:      cfg.Password,
		})
		if err != nil {
			return fmt.Errorf("creating room: %w", err)
		}
		lobby, player = resp.Lobby, resp.PlayerID
		players = []types.Player{{ID: player, Name: cfg.PlayerName}}
		log.Info("room created", zap.String("room", lobby.RoomCode))
	} else {
		resp, err := client.JoinRoom(ctx, rest.JoinRoomRequest{
			RoomCode:   cfg.RoomCode,
			PlayerName: cfg.PlayerName,
			Password:   cfg.Password,
		})
		if err != nil {
			return fmt.Errorf("joining room: %w", err)
		}
		lobby, player, players = resp.Lobby, resp.PlayerID, resp.Players
		log.Info("room joined", zap.String("room", lobby.RoomCode))
	}

	wsURL := cfg.WSURL() + "?" + url.Values{
		"roomCode": {lobby.RoomCode},
		"playerId": {player},
	}.Encode()

	var sess *session.Session
	manager := conn.NewManager(wsURL, log, func(ev protocol.Event) { sess.HandleEvent(ev) })
	defer manager.Close()

	coord := answer.NewCoordinator(log, manager, client, lobby.RoomCode, player)
	sess = session.New(ctx, log, lobby, player, coord, client, players)
	defer func() { sess.Inbox() <- session.Shutdown{} }()

	snapshots := make(chan session.Snapshot, 16)
	sess.Inbox() <- session.Subscribe{ID: "bot", Outbox: snapshots}

	manager.Connect(ctx)
	if manager.State() != conn.StateConnected {
		return errors.New("could not reach the arena server websocket")
	}
	go manager.Watch(ctx)

	isHost := lobby.HostID == player
	if isHost {
		// Give fellow bots a moment, then kick the game off.
		time.Sleep(time.Second)
		manager.Send(protocol.Start{RoomCode: lobby.RoomCode})
	}

	lastNext := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-snapshots:
			if !ok {
				return errors.New("snapshot stream closed")
			}
			switch snap.Step {
			case types.StepCountdown:
				if snap.RemainingTime == 0 {
					sess.Inbox() <- session.CountdownDone{}
				}

			case types.StepQuestion:
				if snap.Question != nil && !snap.Submitted {
					sess.Inbox() <- session.Submit{OptionIndex: snap.Question.CorrectIndex()}
				}

			case types.StepAnswerReveal:
				if isHost && snap.QuestionIndex > lastNext {
					lastNext = snap.QuestionIndex
					sess.Inbox() <- session.Next{}
				}

			case types.StepFinal:
				for i, p := range snap.Players {
					log.Info("final standing",
						zap.Int("place", i+1),
						zap.String("name", p.Name),
						zap.Int("score", p.Score))
				}
				return nil
			}
		}
	}
}
