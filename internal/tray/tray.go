// Package tray provides the system tray menu: gesture toggle, the name of
// the active background, a link to the control panel and Quit.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Menu titles.
const (
	Title          = "Backdrop"
	enabledTitle   = "● Gestures on"
	disabledTitle  = "○ Gestures off"
	liveFeedLabel  = "Background: live feed"
	backgroundText = "Background: "
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onOpenPanel func()
	onQuit      func()
	enabled     bool
	background  string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuBackground *systray.MenuItem
}

// New creates a new Tray with gestures enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when gestures are switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenPanel sets the callback invoked by the control panel menu item.
func (t *Tray) OnOpenPanel(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenPanel = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called or the Quit item is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle(Title)
	systray.SetTooltip("Backdrop gesture background switcher")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Switch gesture control on or off")
	systray.AddSeparator()

	t.menuBackground = systray.AddMenuItem(backgroundTitle(t.background), "Active background")
	t.menuBackground.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuPanel := systray.AddMenuItem("Open Control Panel...", "Open the control panel in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Backdrop")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuPanel.ClickedCh:
				t.handleOpenPanel()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and notifies the callback.
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

func (t *Tray) handleOpenPanel() {
	t.mu.RLock()
	callback := t.onOpenPanel
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

// SetActiveBackground shows name as the active background; an empty name
// means the live feed.
func (t *Tray) SetActiveBackground(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.background = name
	if t.menuBackground != nil {
		t.menuBackground.SetTitle(backgroundTitle(name))
	}
}

// ActiveBackground returns the label last set with SetActiveBackground.
func (t *Tray) ActiveBackground() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.background
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return enabledTitle
	}
	return disabledTitle
}

func backgroundTitle(name string) string {
	if name == "" {
		return liveFeedLabel
	}
	return backgroundText + name
}
