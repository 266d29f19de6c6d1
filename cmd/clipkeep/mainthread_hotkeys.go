//go:build hotkeys

package main

import "golang.design/x/hotkey/mainthread"

// runMain hands the main goroutine to the hotkey library. macOS delivers
// hotkey events on the main thread only.
func runMain(fn func()) { mainthread.Init(fn) }
