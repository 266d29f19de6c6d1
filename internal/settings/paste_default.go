package settings

import "runtime"

// defaultPasteCommand returns the keystroke-injection command used after a
// template or history item is placed on the clipboard.
func defaultPasteCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return `osascript -e 'tell application "System Events" to keystroke "v" using command down'`
	case "windows":
		return `powershell -NoProfile -Command "(New-Object -ComObject WScript.Shell).SendKeys('^v')"`
	default:
		return "xdotool key --clearmodifiers ctrl+v"
	}
}
