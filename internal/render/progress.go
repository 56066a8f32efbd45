package render

// Notifier receives progress events from a running render. Implementations
// must be safe for calls from the render goroutine; callbacks should return
// quickly and never block.
type Notifier interface {
	// Log delivers a human-readable pipeline event.
	Log(msg string)
	// Progress delivers overall completion, 0-100.
	Progress(percent int)
	// Status delivers a short current-activity line, updated roughly every
	// thirty frames during encoding.
	Status(msg string)
	// Playhead delivers the timeline position of the frame most recently
	// handed to the encoder, in seconds.
	Playhead(seconds float64)
}

// Callbacks adapts plain functions to Notifier. Nil fields are skipped, so a
// caller can subscribe to only the events it cares about.
type Callbacks struct {
	OnLog      func(msg string)
	OnProgress func(percent int)
	OnStatus   func(msg string)
	OnPlayhead func(seconds float64)
}

func (c *Callbacks) Log(msg string) {
	if c.OnLog != nil {
		c.OnLog(msg)
	}
}

func (c *Callbacks) Progress(percent int) {
	if c.OnProgress != nil {
		c.OnProgress(percent)
	}
}

func (c *Callbacks) Status(msg string) {
	if c.OnStatus != nil {
		c.OnStatus(msg)
	}
}

func (c *Callbacks) Playhead(seconds float64) {
	if c.OnPlayhead != nil {
		c.OnPlayhead(seconds)
	}
}

var _ Notifier = (*Callbacks)(nil)
