// Package headless provides a PresentationAdapter with no window, for tests
// and for scripted playback: Present records the most recent frame instead
// of drawing it, and PollEvent replays a queue the test fills ahead of time.
package headless

import "github.com/n-ulricksen/go8080-invaders/internal/adapter"

// Adapter is a recording, scriptable stand-in for a real display.
type Adapter struct {
	LastFrame  []uint32
	FrameCount int
	Width      int
	Height     int

	events []adapter.Event
}

// New returns an empty headless adapter.
func New() *Adapter {
	return &Adapter{}
}

// Present records the frame rather than drawing it.
func (a *Adapter) Present(framebuffer []uint32, width, height int) error {
	a.LastFrame = append([]uint32(nil), framebuffer...)
	a.Width, a.Height = width, height
	a.FrameCount++
	return nil
}

// Enqueue schedules an event to be returned by a future PollEvent call, in
// FIFO order, for driving the Shell from a test.
func (a *Adapter) Enqueue(ev adapter.Event) {
	a.events = append(a.events, ev)
}

// PollEvent returns EventNone once the queue is drained.
func (a *Adapter) PollEvent() adapter.Event {
	if len(a.events) == 0 {
		return adapter.Event{Kind: adapter.EventNone}
	}
	ev := a.events[0]
	a.events = a.events[1:]
	return ev
}
