/*
scheduler.go - Background expiry sweeper

PURPOSE:
  Periodically runs the booking expiry sweep: completed stays become
  Completed, pending requests whose window has elapsed become Rejected.
  The sweep itself lives in booking.ExpiryReconciler; this file only
  owns the timing.

DESIGN:
  - Background goroutine with a configurable check interval
  - Each tick runs one sweep inside a single store transaction
  - The sweep is idempotent, so overlapping with the manual
    /api/admin/reconcile endpoint is harmless

USAGE:
  sweeper := NewExpirySweeper(reconciler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - booking/reconcile.go: the sweep itself
  - handlers.go: TriggerReconcile (manual sweep)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/booking-engine/booking"
)

// ExpirySweeper runs the expiry reconciler on a timer.
type ExpirySweeper struct {
	Reconciler    *booking.ExpiryReconciler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a sweeper with a 15 minute interval.
func NewExpirySweeper(reconciler *booking.ExpiryReconciler) *ExpirySweeper {
	return &ExpirySweeper{
		Reconciler:    reconciler,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (es *ExpirySweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Sweeper] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the sweeper and waits for an in-flight sweep to finish.
func (es *ExpirySweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *ExpirySweeper) run() {
	defer es.wg.Done()

	// Run immediately on start
	es.sweep()

	for {
		select {
		case <-es.ticker.C:
			es.sweep()
		case <-es.stop:
			return
		}
	}
}

func (es *ExpirySweeper) sweep() {
	advanced, err := es.Reconciler.Run(context.Background())
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}
	if advanced > 0 {
		log.Printf("[Sweeper] Advanced %d reservations", advanced)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (es *ExpirySweeper) RunNow() {
	es.sweep()
}
