package core

import "sync/atomic"

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling frame time average and frames per second.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	// draws submitted and rejected since the last reset
	DrawCalls    uint64
	DrawFailures uint64

	// fed by a log listener, possibly from job workers
	warnings atomic.Uint64
	errors   atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedTime float64) {
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate Frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	// Count all Frames.
	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}

func (m *Metrics) RecordDraw(ok bool) {
	if ok {
		m.DrawCalls++
		return
	}
	m.DrawFailures++
}

// RecordLog counts warnings and errors. Fatal messages count as errors.
func (m *Metrics) RecordLog(severity Severity) {
	switch severity {
	case SeverityWarn:
		m.warnings.Add(1)
	case SeverityError, SeverityFatal:
		m.errors.Add(1)
	}
}

func (m *Metrics) Warnings() uint64 {
	return m.warnings.Load()
}

func (m *Metrics) Errors() uint64 {
	return m.errors.Load()
}
