package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/practx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSongLoaded MsgKind = iota
	MsgTick
)

// songLoadedMsg is the constructor for [MsgSongLoaded]
func songLoadedMsg(song *models.Song, err error) Msg {
	return Msg{
		kind: MsgSongLoaded,
		data: struct {
			song *models.Song
			err  error
		}{song, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
