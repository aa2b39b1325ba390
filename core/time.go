// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// frameWindow is the number of frames MeasuredFps averages over
const frameWindow = 32

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	eventPollDelay := cfg.EventPollDelay
	if eventPollDelay <= 0 {
		eventPollDelay = 1
	}

	return &Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: eventPollDelay,
		eventTicker:    time.NewTicker(time.Duration(eventPollDelay) * time.Millisecond),
	}
}

// Time contains all the time services and tickers. It also keeps the
// timestamps of the last frames to measure the real frame rate.
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker

	frames     int
	frameTimes [frameWindow]time.Time
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Frame records the start of a frame at now
func (t *Time) Frame(now time.Time) {
	t.frameTimes[t.frames%frameWindow] = now
	t.frames++
}

// Frames returns the number of recorded frames
func (t *Time) Frames() int {
	return t.frames
}

// MeasuredFps averages the frame rate over the last recorded frames,
// it is zero until two frames were recorded
func (t *Time) MeasuredFps() float64 {
	n := t.frames
	if n > frameWindow {
		n = frameWindow
	}
	if n < 2 {
		return 0
	}
	newest := t.frameTimes[(t.frames-1)%frameWindow]
	oldest := t.frameTimes[(t.frames-n)%frameWindow]
	elapsed := newest.Sub(oldest)
	if elapsed <= 0 {
		return 0
	}
	return float64(n-1) / elapsed.Seconds()
}

// Stop stops both tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}
