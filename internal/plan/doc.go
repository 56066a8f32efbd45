// Package plan converts a timeline into the gapless segment sequence a
// render session executes.
//
// A plan tiles [0, total_frames) with typed segments: clip segments decode a
// trimmed source range, blank segments synthesize black video and silence.
// Segment edges come from a boundary-event sweep over the sorted clip
// start/end times, so building is O(n log n) in the clip count while
// preserving the occlusion rule (higher track wins at any instant).
package plan
