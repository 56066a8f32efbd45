// Package render drives the timeline export pipeline.
//
// A render streams raw yuv420p frames through a single long-lived ffmpeg
// encoder process: blank segments synthesize black frames in-process, clip
// segments spawn a short-lived ffmpeg decoder and copy its rawvideo output
// frame by frame into the encoder's stdin. Audio follows the same shape in
// a second pass (raw PCM into one audio encoder), and a final mux combines
// the two intermediates with stream copy.
//
// Session is the entry point. It owns the state machine, cancellation,
// scratch placement, progress reporting, and cleanup; every failure mode is
// folded into a Result rather than escaping as a panic.
package render
