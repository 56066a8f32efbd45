package render

import "errors"

// Sentinel errors for the render pipeline. Callers classify failures with
// errors.Is; everything reaching the session's top level is folded into a
// structured Result, never a panic.
var (
	// ErrEmptyTimeline indicates the timeline holds no clips, so there is
	// nothing to plan.
	ErrEmptyTimeline = errors.New("timeline has no clips")

	// ErrInsufficientSpace indicates neither the destination volume nor the
	// temp fallback has enough free space for intermediates.
	ErrInsufficientSpace = errors.New("insufficient scratch space")

	// ErrProcessStart indicates a decoder, encoder, or muxer process failed
	// to launch.
	ErrProcessStart = errors.New("process failed to start")

	// ErrStream indicates a broken pipe, short read, or premature process
	// exit mid-stream. Fatal on the sink's input pipe; recovered with blank
	// padding during clip decode.
	ErrStream = errors.New("stream interrupted")

	// ErrTimeout indicates a bounded wait on an external process (finalize
	// or merge) expired.
	ErrTimeout = errors.New("external process timed out")

	// ErrCorruptOutput indicates an intermediate file is missing or
	// implausibly small after its pass completed.
	ErrCorruptOutput = errors.New("intermediate output missing or corrupt")

	// ErrCancelled indicates the caller requested cancellation.
	ErrCancelled = errors.New("render cancelled")
)
