// Package config holds the CLI configuration structs. Values come from
// flags, ARENA_-prefixed environment variables, and an optional .env file;
// binding happens in cmd.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Server struct {
	Addr      string
	JWTSecret string
	PublicURL string
}

func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.PublicURL != "" {
		if _, err := url.Parse(c.PublicURL); err != nil {
			return fmt.Errorf("invalid public url: %w", err)
		}
	}
	return nil
}

type Play struct {
	ServerURL  string
	PlayerName string
	RoomCode   string
	Password   string
	Level      string
	Questions  int
}

func (c Play) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}
	if c.PlayerName == "" {
		return errors.New("player name is required")
	}
	if c.RoomCode == "" && c.Questions <= 0 {
		return errors.New("question count must be positive when creating a room")
	}
	return nil
}

// WSURL derives the websocket endpoint from the server url.
func (c Play) WSURL() string {
	ws := strings.Replace(c.ServerURL, "http", "ws", 1)
	return strings.TrimSuffix(ws, "/") + "/ws"
}
