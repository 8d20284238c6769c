package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerValidate(t *testing.T) {
	valid := Server{Addr: ":8080", JWTSecret: "s3cret"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Server{JWTSecret: "s3cret"}.Validate())
	assert.Error(t, Server{Addr: ":8080"}.Validate())
}

func TestPlayValidate(t *testing.T) {
	valid := Play{ServerURL: "http://localhost:8080", PlayerName: "bot", Questions: 5}
	assert.NoError(t, valid.Validate())

	joining := Play{ServerURL: "http://localhost:8080", PlayerName: "bot", RoomCode: "ABC123"}
	assert.NoError(t, joining.Validate())

	assert.Error(t, Play{PlayerName: "bot"}.Validate())
	assert.Error(t, Play{ServerURL: "ftp://x", PlayerName: "bot", Questions: 5}.Validate())
	assert.Error(t, Play{ServerURL: "http://localhost:8080", Questions: 5}.Validate())
	assert.Error(t, Play{ServerURL: "http://localhost:8080", PlayerName: "bot"}.Validate())
}

func TestWSURL(t *testing.T) {
	c := Play{ServerURL: "http://localhost:8080"}
	assert.Equal(t, "ws://localhost:8080/ws", c.WSURL())

	c = Play{ServerURL: "https://arena.example.com/"}
	assert.Equal(t, "wss://arena.example.com/ws", c.WSURL())
}
