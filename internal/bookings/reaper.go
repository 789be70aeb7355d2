package bookings

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"cinebook/internal/idempotency"
)

// Reaper is the safety net behind lazy expiry: holds normally lapse inside
// the seat engine, but the durable rows they left behind still need to flip
// to expired so users see the truth and history stays consistent.
type Reaper struct {
	service     Service
	idempotency idempotency.Service
	config      *ReaperConfig
	done        chan struct{}

	mu    sync.Mutex
	stats ReaperStats
}

// ReaperConfig contains configuration for the expiry sweep
type ReaperConfig struct {
	Period      time.Duration
	BatchSize   int
	Parallelism int
}

// DefaultReaperConfig returns default reaper configuration
func DefaultReaperConfig() *ReaperConfig {
	return &ReaperConfig{
		Period:      1 * time.Minute, // Sweep for expired holds every minute
		BatchSize:   100,             // Process 100 expired bookings at a time
		Parallelism: 10,              // Concurrent expirations per sweep
	}
}

// ReaperStats is a running tally of sweep activity, exposed for inspection.
type ReaperStats struct {
	Sweeps          int64     `json:"sweeps"`
	BookingsExpired int64     `json:"bookings_expired"`
	Failures        int64     `json:"failures"`
	RecordsPurged   int64     `json:"records_purged"`
	LastSweepAt     time.Time `json:"last_sweep_at"`
}

// NewReaper creates a new expiry reaper
func NewReaper(service Service, idem idempotency.Service, config *ReaperConfig) *Reaper {
	if config == nil {
		config = DefaultReaperConfig()
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}

	return &Reaper{
		service:     service,
		idempotency: idem,
		config:      config,
		done:        make(chan struct{}),
	}
}

// Start starts the background sweep
func (r *Reaper) Start(ctx context.Context) {
	log.Println("Starting booking expiry reaper...")
	go r.run(ctx)
}

// Stop stops the background sweep
func (r *Reaper) Stop() {
	log.Println("Stopping booking expiry reaper...")
	close(r.done)
	log.Println("Booking expiry reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Period)
	defer ticker.Stop()

	log.Printf("Started booking expiry reaper with %v period", r.config.Period)

	// Run immediately on startup so a restart does not wait a full period
	// with stale holds on the books.
	r.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep expires one batch of lapsed pending bookings and purges expired
// idempotency records.
func (r *Reaper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := r.service.FindExpiredPending(ctx, now, r.config.BatchSize)
	if err != nil {
		log.Printf("Error scanning for expired bookings: %v", err)
		return
	}

	var expiredCount, failureCount int64
	if len(expired) > 0 {
		expiredCount, failureCount = r.expireBatch(ctx, expired)
		log.Printf("Reaper sweep expired %d booking(s), %d failure(s)", expiredCount, failureCount)
	}

	purged, err := r.idempotency.DeleteExpired(ctx)
	if err != nil {
		log.Printf("Error purging expired idempotency records: %v", err)
	} else if purged > 0 {
		log.Printf("Purged %d expired idempotency record(s)", purged)
	}

	r.mu.Lock()
	r.stats.Sweeps++
	r.stats.BookingsExpired += expiredCount
	r.stats.Failures += failureCount
	r.stats.RecordsPurged += purged
	r.stats.LastSweepAt = now
	r.mu.Unlock()
}

// expireBatch fans the batch out over a bounded number of workers. One
// failed booking never stops the rest of the sweep; it stays pending and is
// retried next period.
func (r *Reaper) expireBatch(ctx context.Context, expired []Booking) (int64, int64) {
	var expiredCount, failureCount int64
	sem := make(chan struct{}, r.config.Parallelism)
	var wg sync.WaitGroup

	for i := range expired {
		booking := expired[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := r.service.ExpireBooking(ctx, &booking); err != nil {
				atomic.AddInt64(&failureCount, 1)
				log.Printf("Error expiring booking %s: %v", booking.ID, err)
				return
			}
			atomic.AddInt64(&expiredCount, 1)
		}()
	}
	wg.Wait()

	return expiredCount, failureCount
}

// Stats returns a snapshot of sweep counters.
func (r *Reaper) Stats() ReaperStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
