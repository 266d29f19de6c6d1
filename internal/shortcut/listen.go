package shortcut

import "log/slog"

// listen runs fn for every event on keydown until done is closed or
// keydown is closed. An event that arrives together with done is dropped.
func listen[E any](combo string, keydown <-chan E, done <-chan struct{}, fn func()) {
	for {
		select {
		case <-done:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			select {
			case <-done:
				return
			default:
			}
			run(combo, fn)
		}
	}
}

func run(combo string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("hotkey handler panicked", "shortcut", combo, "panic", p)
		}
	}()
	fn()
}
