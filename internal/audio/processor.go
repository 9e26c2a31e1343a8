// SPDX-License-Identifier: MIT
package audio

import "time"

// FrameProcessor consumes mono analysis frames. ProcessFrame is called from
// the real-time audio callback (or the offline replay loop) and must not
// block; the frame is only valid for the duration of the call.
type FrameProcessor interface {
	ProcessFrame(frame []float32, now time.Time)
}

// FrameProcessorFunc adapts a plain function to FrameProcessor.
type FrameProcessorFunc func(frame []float32, now time.Time)

func (f FrameProcessorFunc) ProcessFrame(frame []float32, now time.Time) { f(frame, now) }
