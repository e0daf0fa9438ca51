package isoboard

import (
	"fmt"
	"os"
)

// slowFrameSeconds is the frame cost above which a performance warning
// fires (~3 dropped frames at 60 FPS).
const slowFrameSeconds = 0.05

// perfMonitor accumulates frame timings and publishes a periodic
// performance-update, plus warnings for individual slow frames.
type perfMonitor struct {
	pipe     *EventPipeline
	interval float64 // seconds between reports

	elapsed float64
	frames  int
	worst   float64
	debug   bool
}

func newPerfMonitor(pipe *EventPipeline) *perfMonitor {
	return &perfMonitor{pipe: pipe, interval: DefaultPerfInterval.Seconds()}
}

// update records one frame and publishes reports when due.
func (pm *perfMonitor) update(dt float64, visible, batches, reculls, queueLen int) {
	pm.elapsed += dt
	pm.frames++
	if dt > pm.worst {
		pm.worst = dt
	}

	if dt > slowFrameSeconds {
		pm.pipe.Publish(EventPerformanceWarning, PerfWarning{
			Reason: fmt.Sprintf("slow frame: %.1fms", dt*1000),
		})
	}

	if pm.elapsed < pm.interval {
		return
	}

	stats := PerfStats{
		FPS:          float64(pm.frames) / pm.elapsed,
		FrameMillis:  pm.elapsed / float64(pm.frames) * 1000,
		VisibleTiles: visible,
		Batches:      batches,
		Reculls:      reculls,
		QueueLen:     queueLen,
	}
	pm.pipe.Publish(EventPerformanceUpdate, stats)

	if pm.debug {
		_, _ = fmt.Fprintf(os.Stderr,
			"[isoboard] fps: %.1f | frame: %.2fms (worst %.2fms) | visible: %d | batches: %d | reculls: %d | queue: %d\n",
			stats.FPS, stats.FrameMillis, pm.worst*1000,
			visible, batches, reculls, queueLen)
	}

	pm.elapsed = 0
	pm.frames = 0
	pm.worst = 0
}
