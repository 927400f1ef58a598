package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tooltip is shown when hovering the tray icon.
const Tooltip = "LabCV"

var (
	actions Actions
	onStart func()
	onExit  func()

	statusItem *systray.MenuItem
	showItem   *systray.MenuItem
	hideItem   *systray.MenuItem
	quitItem   *systray.MenuItem

	// Status set before the menu exists is applied in onReady.
	statusMu      sync.Mutex
	statusText    = "Backend: starting..."
	statusVisible bool
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called once the menu exists (start the backend here).
// onExitFn is called when the tray exits (cleanup here).
func Run(a Actions, onStartFn, onExitFn func()) {
	actions = a
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTemplateIcon(iconData, iconData)
	systray.SetTooltip(Tooltip)

	header := systray.AddMenuItem("LabCV", "")
	header.Disable()

	statusMu.Lock()
	statusItem = systray.AddMenuItem(statusText, "")
	statusItem.Disable()
	statusVisible = true
	statusMu.Unlock()

	systray.AddSeparator()

	showItem = systray.AddMenuItem("Show Window", "Show the LabCV window")
	hideItem = systray.AddMenuItem("Hide Window", "Hide the LabCV window")

	systray.AddSeparator()

	quitItem = systray.AddMenuItem("Quit", "Stop the backend and quit LabCV")

	if onStart != nil {
		onStart()
	}

	go handleClicks()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	for {
		select {
		case <-showItem.ClickedCh:
			actions.ShowWindow()
		case <-hideItem.ClickedCh:
			actions.HideWindow()
		case <-quitItem.ClickedCh:
			actions.Quit()
			return
		}
	}
}

// UpdateStatus replaces the backend status line in the menu.
func UpdateStatus(text string) {
	statusMu.Lock()
	defer statusMu.Unlock()

	statusText = text
	if statusVisible {
		statusItem.SetTitle(text)
	}
}
