package browser

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// BindingName is the Runtime binding the page bridge reports through.
const BindingName = "__purgedom_binding"

// maxParked bounds the event targets the bridge holds for Go to fetch.
const maxParked = 256

//go:embed bridge.js
var bridgeJS string

// Message is one report from the page bridge.
type Message struct {
	Type    string `json:"type"`
	ID      int    `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
	Code    string `json:"code,omitempty"`
	KeyCode int    `json:"keyCode,omitempty"`
}

// Message types.
const (
	MsgPointerMove = "pointermove"
	MsgClick       = "click"
	MsgKeyDown     = "keydown"
	MsgKeyUp       = "keyup"
	MsgMutation    = "mutation"
	MsgReady       = "ready" // DOM parsed
	MsgLoad        = "load"
)

// BridgeScript returns the script installed in every new document.
func BridgeScript() string {
	cfg, _ := json.Marshal(map[string]any{
		"binding":         BindingName,
		"maxParked":       maxParked,
		"removedAttr":     dom.RemovedAttr,
		"removedSelector": dom.RemovedSelector,
		"cleanModeClass":  dom.CleanModeClass,
		"undoModeClass":   dom.UndoModeClass,
		"restoreAllClass": dom.RestoreAllButtonClass,
	})
	return "(" + bridgeJS + ")(" + string(cfg) + ");"
}

// DecodeMessage parses a binding payload.
func DecodeMessage(payload string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Message{}, fmt.Errorf("browser: bridge payload: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("browser: bridge payload: missing type")
	}
	return m, nil
}

// EventType maps an input message to its dom event type.
func (m Message) EventType() (dom.EventType, bool) {
	switch m.Type {
	case MsgPointerMove:
		return dom.PointerMove, true
	case MsgClick:
		return dom.Click, true
	case MsgKeyDown:
		return dom.KeyDown, true
	case MsgKeyUp:
		return dom.KeyUp, true
	default:
		return 0, false
	}
}
