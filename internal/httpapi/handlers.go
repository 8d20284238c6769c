package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	mathrand "math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/hub"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/quiz"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/room"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

type API struct {
	hub       *hub.Hub
	log       *zap.Logger
	secret    []byte
	publicURL string
}

func New(h *hub.Hub, log *zap.Logger, secret []byte, publicURL string) *API {
	return &API{hub: h, log: log, secret: secret, publicURL: publicURL}
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

type createRoomRequest struct {
	PlayerName       string `json:"playerName"`
	AvatarID         int    `json:"avatarId"`
	Level            string `json:"level"`
	QuestionCount    int    `json:"questionCount"`
	OptionCount      int    `json:"optionCount"`
	QuestionDuration int    `json:"questionDuration"`
	Password         string `json:"password"`
}

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	if req.PlayerName == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "playerName is required")
		return
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 10
	}
	if req.OptionCount <= 0 {
		req.OptionCount = 4
	}
	if req.QuestionDuration <= 0 {
		req.QuestionDuration = 20
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal", "failed to generate code")
			return
		}
		if a.hub.Room(c) == nil {
			code = c
			break
		}
		a.log.Debug("room code collision, regenerating")
	}

	var passwordHash []byte
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal", "failed to hash password")
			return
		}
		passwordHash = hash
	}

	hostID := uuid.NewString()
	lobby := types.LobbyData{
		RoomCode:           code,
		HostID:             hostID,
		QuestionDuration:   req.QuestionDuration,
		TotalQuestionCount: req.QuestionCount,
		OptionCount:        req.OptionCount,
		Level:              req.Level,
	}
	rng := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	questions := quiz.Generate(rng, req.Level, req.QuestionCount, req.OptionCount)
	lobby.TotalQuestionCount = len(questions)

	reply := make(chan *room.Room, 1)
	a.hub.Inbox() <- hub.CreateRoom{
		Lobby:        lobby,
		PasswordHash: passwordHash,
		Engine:       quiz.NewEngine(questions, lobby.QuestionDuration),
		Host:         types.Player{ID: hostID, Name: req.PlayerName, AvatarID: req.AvatarID},
		Reply:        reply,
	}
	if <-reply == nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to create room")
		return
	}

	token, err := a.issueToken(code, hostID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"roomCode": code,
		"playerId": hostID,
		"token":    token,
		"lobby":    lobby,
	})
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	AvatarID   int    `json:"avatarId"`
	Password   string `json:"password"`
}

func (a *API) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	rm := a.hub.Room(req.RoomCode)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}

	playerID := uuid.NewString()
	errReply := make(chan error, 1)
	rm.Inbox() <- room.AddPlayer{
		Player:   types.Player{ID: playerID, Name: req.PlayerName, AvatarID: req.AvatarID},
		Password: req.Password,
		Reply:    errReply,
	}
	switch err := <-errReply; {
	case err == nil:
	case errors.Is(err, room.ErrPasswordNeeded):
		writeError(w, http.StatusForbidden, "RoomPasswordRequired", err.Error())
		return
	case errors.Is(err, room.ErrWrongPassword):
		writeError(w, http.StatusForbidden, "InvalidRoomPassword", err.Error())
		return
	case errors.Is(err, room.ErrDuplicateName):
		writeError(w, http.StatusConflict, "DuplicatePlayerName", err.Error())
		return
	case errors.Is(err, room.ErrGameStarted):
		writeError(w, http.StatusConflict, "GameStarted", err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}

	token, err := a.issueToken(req.RoomCode, playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playerId": playerID,
		"token":    token,
		"lobby":    rm.Lobby(),
		"players":  a.roomPlayers(rm),
	})
}

func (a *API) roomPlayers(rm *room.Room) []types.Player {
	reply := make(chan []types.Player, 1)
	rm.Inbox() <- room.GetPlayers{Reply: reply}
	return <-reply
}

// roomFromQuery resolves ?roomCode= and writes the 404 itself when missing.
func (a *API) roomFromQuery(w http.ResponseWriter, r *http.Request) *room.Room {
	code := r.URL.Query().Get("roomCode")
	rm := a.hub.Room(code)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
	}
	return rm
}

func (a *API) players(w http.ResponseWriter, r *http.Request) {
	rm := a.roomFromQuery(w, r)
	if rm == nil {
		return
	}
	writeJSON(w, http.StatusOK, a.roomPlayers(rm))
}

func (a *API) state(w http.ResponseWriter, r *http.Request) {
	rm := a.roomFromQuery(w, r)
	if rm == nil {
		return
	}
	reply := make(chan room.StateView, 1)
	rm.Inbox() <- room.GetState{Reply: reply}
	view := <-reply
	writeJSON(w, http.StatusOK, map[string]any{
		"step":          view.Step,
		"index":         view.Index,
		"remainingTime": view.RemainingTime,
		"players":       view.Players,
	})
}

func (a *API) allQuestions(w http.ResponseWriter, r *http.Request) {
	rm := a.roomFromQuery(w, r)
	if rm == nil {
		return
	}
	reply := make(chan []types.Question, 1)
	rm.Inbox() <- room.GetQuestions{Reply: reply}
	writeJSON(w, http.StatusOK, <-reply)
}

func (a *API) roomInfo(w http.ResponseWriter, r *http.Request, code string) {
	rm := a.hub.Room(code)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}
	reply := make(chan room.Info, 1)
	rm.Inbox() <- room.GetInfo{Reply: reply}
	info := <-reply
	writeJSON(w, http.StatusOK, map[string]any{
		"lobby":   info.Lobby,
		"players": info.Players,
		"step":    info.Step,
	})
}

// roomQR renders the join link as a PNG for the lobby screen.
func (a *API) roomQR(w http.ResponseWriter, r *http.Request, code string) {
	if a.hub.Room(code) == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}
	png, err := qrcode.Encode(a.publicURL+"/join/"+code, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

type answerRequest struct {
	RoomCode       string  `json:"roomCode"`
	PlayerID       string  `json:"playerId"`
	Answer         string  `json:"answer"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Correct        bool    `json:"correct"`
	OptionPickRate float64 `json:"optionPickRate"`
}

// answer is the REST fallback channel. The client's locally computed
// correctness is advisory; the engine regrades from the answer text.
func (a *API) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	claims := claimsFrom(r)
	if claims.RoomCode != req.RoomCode || claims.PlayerID != req.PlayerID {
		writeError(w, http.StatusForbidden, "Forbidden", "token does not match player")
		return
	}
	rm := a.hub.Room(req.RoomCode)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}
	rm.Inbox() <- room.AnswerText{
		PlayerID: req.PlayerID,
		Answer:   req.Answer,
		Elapsed:  req.ElapsedSeconds,
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) next(w http.ResponseWriter, r *http.Request) {
	rm := a.roomFromQuery(w, r)
	if rm == nil {
		return
	}
	claims := claimsFrom(r)
	if claims.PlayerID != r.URL.Query().Get("playerId") {
		writeError(w, http.StatusForbidden, "Forbidden", "token does not match player")
		return
	}
	rm.Inbox() <- room.Advance{PlayerID: claims.PlayerID}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) disband(w http.ResponseWriter, r *http.Request, code string) {
	rm := a.hub.Room(code)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}
	claims := claimsFrom(r)
	if claims.RoomCode != code || claims.PlayerID != rm.Lobby().HostID {
		writeError(w, http.StatusForbidden, "Forbidden", "only the host may disband the room")
		return
	}
	rm.Inbox() <- room.Disband{PlayerID: claims.PlayerID}
	a.hub.Inbox() <- hub.RemoveRoom{Code: code}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) leave(w http.ResponseWriter, r *http.Request, code string) {
	rm := a.hub.Room(code)
	if rm == nil {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no room with that code")
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid json body")
		return
	}
	claims := claimsFrom(r)
	if claims.PlayerID != req.PlayerID {
		writeError(w, http.StatusForbidden, "Forbidden", "token does not match player")
		return
	}
	rm.Inbox() <- room.RemovePlayer{PlayerID: req.PlayerID}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
