// Package tray provides the system tray menu for the mood player.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/moodplayer/internal/mood"
)

// Tray is the system tray application.
type Tray struct {
	onRescan func()
	onOpen   func()
	onQuit   func()
	lastMood mood.Kind
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuMood *systray.MenuItem
}

// New creates a new Tray.
func New() *Tray {
	return &Tray{}
}

// OnRescan sets the callback for the Rescan menu item.
func (t *Tray) OnRescan(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRescan = fn
}

// OnOpen sets the callback for the Open Player menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the Quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("MoodPlayer")
	systray.SetTooltip("MoodPlayer")

	menuRescan := systray.AddMenuItem("Rescan", "Scan for a new mood")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuMood = systray.AddMenuItem(moodTitle(t.lastMood), "Last detected mood")
	t.menuMood.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Player...", "Open the player in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit MoodPlayer")

	go func() {
		for {
			select {
			case <-menuRescan.ClickedCh:
				t.handleRescan()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleRescan() {
	t.mu.RLock()
	callback := t.onRescan
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	t.SetLastMood(mood.None)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
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

// SetLastMood updates the mood line in the menu.
func (t *Tray) SetLastMood(kind mood.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastMood = kind
	if t.menuMood != nil {
		t.menuMood.SetTitle(moodTitle(kind))
	}
}

// LastMood returns the mood shown in the menu.
func (t *Tray) LastMood() mood.Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastMood
}

func moodTitle(kind mood.Kind) string {
	if kind == mood.None {
		return "Mood: none"
	}
	theme := mood.ThemeFor(kind)
	if theme.Fallback {
		return "Mood: " + kind.Label()
	}
	return "Mood: " + theme.Emoji + " " + kind.Label()
}
