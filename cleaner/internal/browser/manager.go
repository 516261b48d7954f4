// Package browser drives Chrome for interactive cleaning: it launches or
// connects to a browser, opens tabs with the page bridge installed and
// exposes each tab's document to the cleaner core.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Display selects how a locally launched Chrome is shown.
type Display int

const (
	// DisplayWindow opens a visible window on the user's display.
	DisplayWindow Display = iota
	// DisplayHeadless runs headless with stealth patches.
	DisplayHeadless
	// DisplayXvfb runs headful on a virtual Xvfb display with stealth patches.
	DisplayXvfb
)

func (d Display) String() string {
	switch d {
	case DisplayHeadless:
		return "headless"
	case DisplayXvfb:
		return "xvfb"
	default:
		return "window"
	}
}

// ParseDisplay parses a config value. Empty means DisplayWindow.
func ParseDisplay(s string) (Display, error) {
	switch s {
	case "", "window":
		return DisplayWindow, nil
	case "headless":
		return DisplayHeadless, nil
	case "xvfb":
		return DisplayXvfb, nil
	}
	return DisplayWindow, fmt.Errorf("browser: unknown display %q", s)
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty = launch a local Chrome.
	RemoteURL string

	Display Display

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// XvfbDisplay for DisplayXvfb. Default: ":99".
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process (or remote connection).
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb. A remote browser is only disconnected.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		if m.cfg.Display == DisplayXvfb {
			if err := m.startXvfb(); err != nil {
				return nil, fmt.Errorf("browser: xvfb: %w", err)
			}
		}

		l := launcher.New().Context(ctx)
		switch m.cfg.Display {
		case DisplayHeadless:
			l = l.Headless(true)
		case DisplayXvfb:
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		default:
			l = l.Headless(false)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "display", m.cfg.Display)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		if m.lnch != nil {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return err
}
