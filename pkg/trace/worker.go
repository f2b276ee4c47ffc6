package trace

import (
	"sync"
	"time"
)

// redrawWorker refreshes the visible slice of dirty traces while an ROI is
// being dragged. It runs until stop is called; stop blocks until the loop
// has exited, so a full redraw never races with a partial one.
type redrawWorker struct {
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func startWorker(d *Display, interval time.Duration) *redrawWorker {
	w := &redrawWorker{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run(d, interval)
	return w
}

func (w *redrawWorker) run(d *Display, interval time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case <-ticker.C:
		}
		d.redrawDirty(w.quit)
	}
}

// stop requests the loop to exit and waits for it.
func (w *redrawWorker) stop() {
	w.once.Do(func() { close(w.quit) })
	<-w.done
}

func stopping(quit <-chan struct{}) bool {
	select {
	case <-quit:
		return true
	default:
		return false
	}
}
