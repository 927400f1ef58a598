// Package tray implements the system tray icon and menu for the shell.
package tray

// Actions are invoked from tray menu clicks.
type Actions interface {
	ShowWindow()
	HideWindow()
	Quit()
}
