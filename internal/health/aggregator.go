package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/notify"
)

// Aggregated health statuses. GET handlers always return HTTP 200 and let
// this field carry the signal; uptime monitors must never see a monitoring
// failure as a transport failure.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Per-check statuses.
const (
	CheckOK    = "ok"
	CheckWarn  = "warn"
	CheckError = "error"
)

// DBPinger is the database reachability probe (the one critical check).
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EventRecency reports when the last webhook arrived.
type EventRecency interface {
	LatestEventTime(ctx context.Context) (time.Time, error)
}

// ActiveCounter reports how many workflows are currently in flight.
type ActiveCounter interface {
	CountActiveExecutions(ctx context.Context) (int, error)
}

// PlatformPinger measures upstream OPAL API latency.
type PlatformPinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// VerdictSource supplies recent validation verdicts for the rollup.
type VerdictSource interface {
	ListRecentValidations(ctx context.Context, limit int) ([]models.IntegrationValidationRecord, error)
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Snapshot is one computed health report.
type Snapshot struct {
	Status          string                 `json:"status"`
	Checks          map[string]CheckResult `json:"checks"`
	Timestamp       time.Time              `json:"timestamp"`
	Warnings        []string               `json:"warnings,omitempty"`
	Errors          []string               `json:"errors,omitempty"`
	CacheTTLSeconds int                    `json:"cache_ttl_seconds"`
	FallbackUsed    bool                   `json:"fallback_used"`
	CacheAgeMS      int64                  `json:"cache_age_ms,omitempty"`
}

// Aggregator combines live component probes and recent validation verdicts
// into a single cached status. The cache TTL shrinks when the status is
// degraded so monitors re-poll faster while trouble is suspected.
type Aggregator struct {
	db       DBPinger
	events   EventRecency
	execs    ActiveCounter
	platform PlatformPinger
	verdicts VerdictSource
	notifier notify.Notifier
	cfg      config.HealthConfig

	mu     sync.Mutex
	cached *Snapshot

	nowFn func() time.Time
}

// NewAggregator creates a health aggregator.
func NewAggregator(db DBPinger, events EventRecency, execs ActiveCounter, platform PlatformPinger, verdicts VerdictSource, notifier notify.Notifier, cfg config.HealthConfig) *Aggregator {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Aggregator{
		db:       db,
		events:   events,
		execs:    execs,
		platform: platform,
		verdicts: verdicts,
		notifier: notifier,
		cfg:      cfg,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// GetHealth returns the current health snapshot, serving from cache while
// the cached snapshot is within its TTL. The boolean reports whether the
// snapshot came from cache. This method never returns an error for probe
// failures; those are folded into the snapshot.
func (a *Aggregator) GetHealth(ctx context.Context) (*Snapshot, bool) {
	a.mu.Lock()
	if a.cached != nil {
		age := a.nowFn().Sub(a.cached.Timestamp)
		if age < time.Duration(a.cached.CacheTTLSeconds)*time.Second {
			snap := *a.cached
			snap.CacheAgeMS = age.Milliseconds()
			a.mu.Unlock()
			return &snap, true
		}
	}
	a.mu.Unlock()

	snap := a.refresh(ctx)
	return snap, false
}

// GetCached returns the last computed snapshot annotated as a fallback, or
// nil when no snapshot was ever computed. Callers use it when the live path
// fails and should degrade to the minimal unhealthy shape on nil.
func (a *Aggregator) GetCached() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached == nil {
		return nil
	}
	snap := *a.cached
	snap.FallbackUsed = true
	snap.CacheAgeMS = a.nowFn().Sub(snap.Timestamp).Milliseconds()
	return &snap
}

// ForceRefresh bypasses the cache and re-runs all probes immediately. Used
// by the operator-triggered POST path.
func (a *Aggregator) ForceRefresh(ctx context.Context) *Snapshot {
	return a.refresh(ctx)
}

// Unhealthy is the minimal always-parseable snapshot returned when even the
// cache is empty.
func Unhealthy(errs ...string) *Snapshot {
	return &Snapshot{
		Status:          StatusUnhealthy,
		Checks:          map[string]CheckResult{},
		Timestamp:       time.Now().UTC(),
		Errors:          errs,
		CacheTTLSeconds: 30,
	}
}

func (a *Aggregator) refresh(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Checks:    make(map[string]CheckResult),
		Timestamp: a.nowFn(),
	}

	snap.Checks["database"] = a.probeDatabase(ctx)
	snap.Checks["upstream_api"] = a.probePlatform(ctx)
	snap.Checks["webhooks"] = a.probeWebhookRecency(ctx)
	snap.Checks["workflow_engine"] = a.probeWorkflowEngine(ctx)

	// Database connectivity is the sole critical check; everything else
	// only degrades.
	switch {
	case snap.Checks["database"].Status == CheckError:
		snap.Status = StatusUnhealthy
	case a.anyOffNominal(snap.Checks):
		snap.Status = StatusDegraded
	default:
		snap.Status = StatusHealthy
	}

	for name, check := range snap.Checks {
		switch check.Status {
		case CheckError:
			snap.Errors = append(snap.Errors, fmt.Sprintf("%s: %s", name, check.Detail))
		case CheckWarn:
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %s", name, check.Detail))
		}
	}

	if snap.Status == StatusHealthy {
		snap.CacheTTLSeconds = int(a.cfg.TTLHealthy.Seconds())
	} else {
		snap.CacheTTLSeconds = int(a.cfg.TTLDegraded.Seconds())
	}

	a.mu.Lock()
	previous := ""
	if a.cached != nil {
		previous = a.cached.Status
	}
	a.cached = snap
	a.mu.Unlock()

	if previous != "" && previous != snap.Status {
		a.notifier.HealthChanged(ctx, previous, snap.Status)
	}

	copied := *snap
	return &copied
}

func (a *Aggregator) anyOffNominal(checks map[string]CheckResult) bool {
	for _, check := range checks {
		if check.Status != CheckOK {
			return true
		}
	}
	return false
}

func (a *Aggregator) probeDatabase(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	start := a.nowFn()
	if err := a.db.Ping(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Database health probe failed")
		return CheckResult{Status: CheckError, Detail: err.Error()}
	}
	return CheckResult{Status: CheckOK, LatencyMS: time.Since(start).Milliseconds()}
}

func (a *Aggregator) probePlatform(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	latency, err := a.platform.Ping(ctx)
	if err != nil {
		return CheckResult{Status: CheckWarn, Detail: fmt.Sprintf("unreachable: %v", err)}
	}
	if latency > a.cfg.APILatencyMax {
		return CheckResult{
			Status:    CheckWarn,
			LatencyMS: latency.Milliseconds(),
			Detail:    fmt.Sprintf("latency above %s", a.cfg.APILatencyMax),
		}
	}
	return CheckResult{Status: CheckOK, LatencyMS: latency.Milliseconds()}
}

func (a *Aggregator) probeWebhookRecency(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	latest, err := a.events.LatestEventTime(ctx)
	if err != nil {
		if err == models.ErrNotFound {
			return CheckResult{Status: CheckWarn, Detail: "no webhook events received yet"}
		}
		return CheckResult{Status: CheckWarn, Detail: fmt.Sprintf("recency unknown: %v", err)}
	}

	age := a.nowFn().Sub(latest)
	if age > a.cfg.WebhookMaxAge {
		return CheckResult{Status: CheckWarn, Detail: fmt.Sprintf("last webhook %s ago", age.Round(time.Minute))}
	}
	return CheckResult{Status: CheckOK, Detail: fmt.Sprintf("last webhook %s ago", age.Round(time.Second))}
}

func (a *Aggregator) probeWorkflowEngine(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	active, err := a.execs.CountActiveExecutions(ctx)
	if err != nil {
		return CheckResult{Status: CheckWarn, Detail: fmt.Sprintf("active count unknown: %v", err)}
	}

	check := CheckResult{Status: CheckOK, Detail: fmt.Sprintf("%d active workflows", active)}

	// Fold the most recent validation verdict in: a red verdict marks the
	// workflow engine off-nominal even when executions are flowing.
	if a.verdicts != nil {
		if records, err := a.verdicts.ListRecentValidations(ctx, 1); err == nil && len(records) > 0 {
			if records[0].OverallStatus == models.VerdictRed {
				check.Status = CheckWarn
				check.Detail = fmt.Sprintf("latest validation red: %s", records[0].Summary)
			}
		}
	}
	return check
}
