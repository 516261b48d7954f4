package dom

// EventType identifies the kind of input forwarded by a host.
type EventType int

const (
	PointerMove EventType = iota
	Click
	KeyDown
	KeyUp
)

func (t EventType) String() string {
	switch t {
	case PointerMove:
		return "pointermove"
	case Click:
		return "click"
	case KeyDown:
		return "keydown"
	case KeyUp:
		return "keyup"
	default:
		return "unknown"
	}
}

// Event is one pointer or keyboard input.
type Event struct {
	Type   EventType
	Target Element

	// Keyboard fields. Hosts fill whatever their input source provides.
	Key     string
	Code    string
	KeyCode int

	suppressed bool
}

// Suppress cancels the default action and stops further propagation.
func (e *Event) Suppress() { e.suppressed = true }

// Suppressed reports whether Suppress was called.
func (e *Event) Suppressed() bool { return e.suppressed }

// IsEscape matches Escape by key name, code or legacy key code.
func (e *Event) IsEscape() bool {
	return e.Key == "Escape" || e.Key == "Esc" || e.Code == "Escape" || e.KeyCode == 27
}
