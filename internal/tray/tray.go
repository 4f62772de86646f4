// Package tray provides the system tray menu for Airpoint: a dispatch
// toggle, the current interaction mode, a link to the status page and quit.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func(enabled bool)
	onOpenStatus func()
	onQuit       func()
	enabled      bool
	mode         string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuMode   *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray showing the given enabled state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		mode:    modeTitle(session.Status{}),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenStatus sets the callback for the status page item. Without one the
// item is disabled.
func (t *Tray) OnOpenStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called on the main
// thread and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Airpoint")
	systray.SetTooltip("Airpoint hand pointer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume pointer control")
	systray.AddSeparator()

	t.menuMode = systray.AddMenuItem(t.mode, "Current interaction")
	t.menuMode.Disable()
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem("Open Status...", "Open the status page in a browser")
	if t.onOpenStatus == nil {
		t.menuStatus.Disable()
	}
	systray.AddSeparator()
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Airpoint")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuStatus.ClickedCh:
				t.handleOpenStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpenStatus() {
	t.mu.RLock()
	callback := t.onOpenStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update mirrors a session status into the menu. The enabled state may have
// been changed elsewhere, e.g. through the HTTP API.
func (t *Tray) Update(st session.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st.Enabled != t.enabled {
		t.enabled = st.Enabled
		if t.menuToggle != nil {
			t.menuToggle.SetTitle(toggleTitle(t.enabled))
		}
	}

	if mode := modeTitle(st); mode != t.mode {
		t.mode = mode
		if t.menuMode != nil {
			t.menuMode.SetTitle(mode)
		}
	}
}

// Follow calls Update with status() every interval until ctx is done.
func (t *Tray) Follow(ctx context.Context, status func() session.Status, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Update(status())
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Mode returns the mode line as shown in the menu.
func (t *Tray) Mode() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func modeTitle(st session.Status) string {
	switch {
	case !st.Running:
		return "Mode: stopped"
	case st.Idle:
		return "Mode: idle"
	case !st.Hand:
		return "Mode: no hand"
	case st.Mode == "" || st.Mode == control.ModeNone:
		return "Mode: tracking"
	}
	return fmt.Sprintf("Mode: %s", st.Mode)
}
