/*
scheduler.go - Automated balance audit scheduler

PURPOSE:
  Periodically runs the balance auditor so drift between stored account
  balances and the ledger surfaces without anyone opening the dashboard.
  The audit only reports; nothing is auto-corrected.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Executes one audit immediately on start
  - Logs discrepancies at warn level (structured with account ids)

CONFIGURATION:
  - CheckInterval: How often to audit (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAuditScheduler(auditor, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - finance/audit.go: AuditBalances and Auditor
  - handlers.go: RunAudit endpoint (manual audit)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vantage/order-engine/finance"
)

// AuditScheduler runs the balance audit on a fixed interval.
type AuditScheduler struct {
	Auditor       *finance.Auditor
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler.
func NewAuditScheduler(auditor *finance.Auditor, log zerolog.Logger) *AuditScheduler {
	return &AuditScheduler{
		Auditor:       auditor,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.With().Str("component", "audit-scheduler").Logger(),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.log.Info().Msg("scheduler disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)
	go as.run()

	as.log.Info().Dur("interval", as.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.log.Info().Msg("scheduler stopped")
	}
}

func (as *AuditScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.audit()

	for {
		select {
		case <-as.ticker.C:
			as.audit()
		case <-as.stop:
			return
		}
	}
}

func (as *AuditScheduler) audit() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := as.Auditor.Run(ctx)
	if err != nil {
		as.log.Error().Err(err).Msg("balance audit failed")
		return
	}

	if !report.HasDiscrepancies() {
		as.log.Debug().Int("accounts", len(report.Rows)).Msg("balance audit clean")
		return
	}

	for _, row := range report.Rows {
		if !row.Discrepant {
			continue
		}
		as.log.Warn().
			Str("account", string(row.AccountID)).
			Str("name", row.AccountName).
			Str("reported", row.Reported.StringFixed(2)).
			Str("calculated", row.Calculated.StringFixed(2)).
			Str("difference", row.Difference.StringFixed(2)).
			Msg("account balance drift detected")
	}
}

// RunNow triggers an immediate audit (for testing/admin).
func (as *AuditScheduler) RunNow() {
	as.audit()
}
