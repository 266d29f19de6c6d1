package clip

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// It never reports content and silently discards writes.
type headlessBackend struct{}

// Headless returns the no-op backend.
func Headless() Backend { return &headlessBackend{} }

func (b *headlessBackend) Name() string                { return "headless (no-op)" }
func (b *headlessBackend) Text() ([]byte, error)       { return nil, nil }
func (b *headlessBackend) Image() ([]byte, error)      { return nil, nil }
func (b *headlessBackend) Files() ([]string, error)    { return nil, ErrUnsupported }
func (b *headlessBackend) WriteText(_ []byte) error    { return nil }
func (b *headlessBackend) WriteImage(_ []byte) error   { return nil }
func (b *headlessBackend) WriteFiles(_ []string) error { return nil }
func (b *headlessBackend) Close()                      {}
