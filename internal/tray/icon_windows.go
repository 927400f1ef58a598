//go:build windows

package tray

import _ "embed"

// The Windows tray requires ICO data.
//
//go:embed icon.ico
var iconData []byte
