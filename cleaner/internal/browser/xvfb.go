package browser

import (
	"fmt"
	"os/exec"
	"time"
)

// xvfbScreen is the virtual screen geometry handed to Xvfb.
const xvfbScreen = "1920x1080x24"

// startXvfb launches the virtual display used by DisplayXvfb.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}

	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", xvfbScreen, "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb %s: %w", m.cfg.XvfbDisplay, err)
	}
	m.xvfb = cmd

	// Xvfb accepts connections shortly after start.
	time.Sleep(500 * time.Millisecond)

	m.cfg.Logger.Info("browser: xvfb started", "display", m.cfg.XvfbDisplay, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		_ = m.xvfb.Process.Kill()
		_ = m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
	m.xvfb = nil
}
