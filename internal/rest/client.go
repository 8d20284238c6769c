// Package rest is the HTTP side of the game API. The websocket path owns
// gameplay UX; several calls here (answer fallback, next) are deliberately
// fire-and-forget from the caller's point of view, with failures logged only.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomPasswordRequired = errors.New("room password required")
	ErrInvalidRoomPassword  = errors.New("invalid room password")
	ErrDuplicateName        = errors.New("player name already taken in room")
)

// APIError is the generic fallback for server error codes outside the
// enumerated set.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Token returns the bearer token captured from the last create/join call.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type CreateRoomRequest struct {
	PlayerName       string `json:"playerName"`
	AvatarID         int    `json:"avatarId"`
	Level            string `json:"level"`
	QuestionCount    int    `json:"questionCount"`
	OptionCount      int    `json:"optionCount"`
	QuestionDuration int    `json:"questionDuration"`
	Password         string `json:"password,omitempty"`
}

type CreateRoomResponse struct {
	RoomCode string          `json:"roomCode"`
	PlayerID string          `json:"playerId"`
	Token    string          `json:"token"`
	Lobby    types.LobbyData `json:"lobby"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	AvatarID   int    `json:"avatarId"`
	Password   string `json:"password,omitempty"`
}

type JoinRoomResponse struct {
	PlayerID string          `json:"playerId"`
	Token    string          `json:"token"`
	Lobby    types.LobbyData `json:"lobby"`
	Players  []types.Player  `json:"players"`
}

type StateResponse struct {
	Step          types.GameStep `json:"step"`
	Index         int            `json:"index"`
	RemainingTime int            `json:"remainingTime"`
	Players       []types.Player `json:"players"`
}

type RoomInfo struct {
	Lobby   types.LobbyData `json:"lobby"`
	Players []types.Player  `json:"players"`
	Step    types.GameStep  `json:"step"`
}

// AnswerRequest is the legacy answer channel. It carries the answer text
// rather than the option index, the locally computed correctness, and an
// optionPickRate the server aggregates for per-option statistics.
type AnswerRequest struct {
	RoomCode       string  `json:"roomCode"`
	PlayerID       string  `json:"playerId"`
	Answer         string  `json:"answer"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Correct        bool    `json:"correct"`
	OptionPickRate float64 `json:"optionPickRate"`
}

// CreateRoom creates a room and captures the bearer token for later calls.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error) {
	var resp CreateRoomResponse
	if err := c.do(ctx, http.MethodPost, "/api/game/create", nil, req, &resp); err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp, nil
}

// JoinRoom joins a room. The duplicate-name check runs client-side first: if
// the name is already on the roster, no join request is issued at all.
func (c *Client) JoinRoom(ctx context.Context, req JoinRoomRequest) (*JoinRoomResponse, error) {
	players, err := c.Players(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.Name == req.PlayerName {
			return nil, ErrDuplicateName
		}
	}

	var resp JoinRoomResponse
	if err := c.do(ctx, http.MethodPost, "/api/game/join", nil, req, &resp); err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp, nil
}

func (c *Client) Players(ctx context.Context, roomCode string) ([]types.Player, error) {
	var players []types.Player
	q := url.Values{"roomCode": {roomCode}}
	if err := c.do(ctx, http.MethodGet, "/api/game/players", q, nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (c *Client) GameState(ctx context.Context, roomCode, playerID string) (*StateResponse, error) {
	var resp StateResponse
	q := url.Values{"roomCode": {roomCode}, "playerId": {playerID}}
	if err := c.do(ctx, http.MethodGet, "/api/game/state", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AllQuestions(ctx context.Context, roomCode string) ([]types.Question, error) {
	var questions []types.Question
	q := url.Values{"roomCode": {roomCode}}
	if err := c.do(ctx, http.MethodGet, "/api/quiz/all-questions", q, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Client) Room(ctx context.Context, roomCode string) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.do(ctx, http.MethodGet, "/api/game/"+roomCode, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitAnswer posts the legacy answer fallback.
func (c *Client) SubmitAnswer(ctx context.Context, req AnswerRequest) error {
	return c.do(ctx, http.MethodPost, "/api/game/answer", nil, req, nil)
}

// Next advances past the reveal screen. Callers treat it as fire-and-forget.
func (c *Client) Next(ctx context.Context, roomCode, playerID string) error {
	q := url.Values{"roomCode": {roomCode}, "playerId": {playerID}}
	return c.do(ctx, http.MethodPost, "/api/game/next", q, nil, nil)
}

func (c *Client) Disband(ctx context.Context, roomCode string) error {
	return c.do(ctx, http.MethodPost, "/api/game/rooms/"+roomCode+"/disband", nil, nil, nil)
}

func (c *Client) Leave(ctx context.Context, roomCode, playerID string) error {
	body := map[string]string{"playerId": playerID}
	return c.do(ctx, http.MethodPost, "/api/game/rooms/"+roomCode+"/leave", nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, apiErr); err != nil {
		apiErr.Code = "Unknown"
		apiErr.Message = resp.Status
	}

	switch apiErr.Code {
	case "RoomNotFound":
		return ErrRoomNotFound
	case "RoomPasswordRequired":
		return ErrRoomPasswordRequired
	case "InvalidRoomPassword":
		return ErrInvalidRoomPassword
	case "DuplicatePlayerName":
		return ErrDuplicateName
	}
	c.log.Warn("api error", zap.String("code", apiErr.Code), zap.Int("status", apiErr.Status))
	return apiErr
}
