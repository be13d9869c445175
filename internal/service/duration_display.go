package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/checkin-agent/internal/observable"
)

// FormatDuration renders d as HH:MM:SS. Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// DurationDisplay publishes the elapsed session time once per interval.
// It only reads the start timestamp it was given.
type DurationDisplay struct {
	mu       sync.Mutex
	value    *observable.Value[string]
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewDurationDisplay creates a display ticking every second.
func NewDurationDisplay(now func() time.Time) *DurationDisplay {
	if now == nil {
		now = time.Now
	}
	return &DurationDisplay{
		value:    observable.NewValue(""),
		interval: time.Second,
		now:      now,
	}
}

// Value exposes the formatted duration.
func (d *DurationDisplay) Value() *observable.Value[string] {
	return d.value
}

// Restart stops the current ticker and, when start is set, begins a new one.
func (d *DurationDisplay) Restart(start *time.Time) {
	d.Stop()
	if start == nil {
		d.value.Set("")
		return
	}

	begin := *start
	stop := make(chan struct{})
	d.mu.Lock()
	d.stop = stop
	d.mu.Unlock()

	d.value.Set(FormatDuration(d.now().Sub(begin)))
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.value.Set(FormatDuration(d.now().Sub(begin)))
			}
		}
	}()
}

// Stop halts the ticker, if running.
func (d *DurationDisplay) Stop() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	d.wg.Wait()
}
