package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
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
	MsgResourceFetched MsgKind = iota
	MsgSubmitted
	MsgPrefilled
)

type fetchResult struct {
	href string
	doc  *hal.Document
	err  error
}

// resourceFetchedMsg is the constructor for [MsgResourceFetched]
func resourceFetchedMsg(href string, doc *hal.Document, err error) Msg {
	return Msg{kind: MsgResourceFetched, data: fetchResult{href: href, doc: doc, err: err}}
}

type submitResult struct {
	id     int
	result forms.Result
}

// submittedMsg is the constructor for [MsgSubmitted]
func submittedMsg(id int, result forms.Result) Msg {
	return Msg{kind: MsgSubmitted, data: submitResult{id: id, result: result}}
}

type prefillResult struct {
	from     string
	template hal.Template
	data     map[string]any
	err      error
}

// prefilledMsg is the constructor for [MsgPrefilled]
func prefilledMsg(from string, t hal.Template, data map[string]any, err error) Msg {
	return Msg{kind: MsgPrefilled, data: prefillResult{from: from, template: t, data: data, err: err}}
}
