// Package breaker implements the stateful circuit breaker companion to the
// risk gate. Independent tiers (daily loss, drawdown, consecutive losses,
// volatility spike) each run a NORMAL → BREACHED → COOLDOWN → NORMAL
// hysteresis cycle; while any tier is away from NORMAL, every gate
// evaluation is forced to BLOCK regardless of per-request scoring.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TierKind identifies one independent breaker tier.
type TierKind string

const (
	TierDailyLoss         TierKind = "daily_loss"
	TierDrawdown          TierKind = "drawdown"
	TierConsecutiveLosses TierKind = "consecutive_losses"
	TierVolatilitySpike   TierKind = "volatility_spike"
)

// AllTiers lists every tier in stable order.
func AllTiers() []TierKind {
	return []TierKind{TierDailyLoss, TierDrawdown, TierConsecutiveLosses, TierVolatilitySpike}
}

// TierState represents the state of one breaker tier
type TierState int

const (
	StateNormal TierState = iota
	StateBreached
	StateCooldown
)

// String returns the string representation of the tier state
func (s TierState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateBreached:
		return "BREACHED"
	case StateCooldown:
		return "COOLDOWN"
	default:
		return "UNKNOWN"
	}
}

// Config holds thresholds for every tier plus the hysteresis parameters.
type Config struct {
	DailyLossPct         float64 `json:"daily_loss_pct"`         // 0.05
	DrawdownPct          float64 `json:"drawdown_pct"`           // 0.15
	ConsecutiveLosses    int     `json:"consecutive_losses"`     // 5
	VolatilitySpikeLevel float64 `json:"volatility_spike_level"` // 0.80

	// RecoveryReadings is how many consecutive sub-threshold readings a
	// tier needs during cooldown before it returns to NORMAL.
	RecoveryReadings int `json:"recovery_readings"` // 5
}

// DefaultConfig returns the default breaker thresholds. Tunable defaults,
// not calibrated constants.
func DefaultConfig() Config {
	return Config{
		DailyLossPct:         0.05,
		DrawdownPct:          0.15,
		ConsecutiveLosses:    5,
		VolatilitySpikeLevel: 0.80,
		RecoveryReadings:     5,
	}
}

// Reading is one portfolio-level observation fed to every tier.
type Reading struct {
	DailyLossPct      float64   `json:"daily_loss_pct"`
	DrawdownPct       float64   `json:"drawdown_pct"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	Volatility        float64   `json:"volatility"`
	At                time.Time `json:"at"`
}

// TierSnapshot is the externally visible state of one tier.
type TierSnapshot struct {
	Kind          TierKind  `json:"kind"`
	State         TierState `json:"state"`
	LastValue     float64   `json:"last_value"`
	Threshold     float64   `json:"threshold"`
	BreachedAt    time.Time `json:"breached_at,omitempty"`
	RecoveryCount int       `json:"recovery_count"`
}

// Snapshot is a consistent view of every tier at one instant. Evaluations
// read a snapshot at decision time so concurrent updates never produce a
// torn view.
type Snapshot struct {
	Tiers   map[TierKind]TierSnapshot `json:"tiers"`
	TakenAt time.Time                 `json:"taken_at"`
}

// Tripped returns the tiers currently away from NORMAL, in stable order.
func (s Snapshot) Tripped() []TierKind {
	var tripped []TierKind
	for _, kind := range AllTiers() {
		if t, ok := s.Tiers[kind]; ok && t.State != StateNormal {
			tripped = append(tripped, kind)
		}
	}
	return tripped
}

// SnapshotStore persists breaker state across restarts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, bool, error)
}

// tier is the internal mutable state of one tier. All access goes through
// the owning Breaker's mutex: single writer per tier.
type tier struct {
	state         TierState
	lastValue     float64
	breachedAt    time.Time
	recoveryCount int
}

// Breaker owns the cross-request mutable state of the gate. One mutex
// guards every tier; readers take snapshots, writers transition tiers.
type Breaker struct {
	config Config
	store  SnapshotStore

	mu     sync.Mutex
	tiers  map[TierKind]*tier
	onTrip func(kind TierKind, value float64)
}

// New creates a breaker with all tiers in NORMAL. store may be nil when no
// persistence is wanted.
func New(config Config, store SnapshotStore) *Breaker {
	tiers := make(map[TierKind]*tier, len(AllTiers()))
	for _, kind := range AllTiers() {
		tiers[kind] = &tier{state: StateNormal}
	}
	return &Breaker{config: config, store: store, tiers: tiers}
}

// SetTripCallback registers a callback fired whenever a tier trips. The
// callback runs outside the breaker mutex.
func (b *Breaker) SetTripCallback(fn func(kind TierKind, value float64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = fn
}

// Observe feeds one reading to every tier and applies the hysteresis
// transitions. It returns the tiers that tripped on this reading.
func (b *Breaker) Observe(ctx context.Context, reading Reading) []TierKind {
	values := map[TierKind]struct {
		value     float64
		threshold float64
	}{
		TierDailyLoss:         {reading.DailyLossPct, b.config.DailyLossPct},
		TierDrawdown:          {reading.DrawdownPct, b.config.DrawdownPct},
		TierConsecutiveLosses: {float64(reading.ConsecutiveLosses), float64(b.config.ConsecutiveLosses)},
		TierVolatilitySpike:   {reading.Volatility, b.config.VolatilitySpikeLevel},
	}

	b.mu.Lock()
	var tripped []TierKind
	for _, kind := range AllTiers() {
		v := values[kind]
		if b.transition(kind, v.value, v.threshold, reading.At) {
			tripped = append(tripped, kind)
		}
	}
	onTrip := b.onTrip
	b.mu.Unlock()

	if onTrip != nil {
		for _, kind := range tripped {
			onTrip(kind, values[kind].value)
		}
	}

	b.persist(ctx)
	return tripped
}

// transition applies one reading to one tier. Returns true when the tier
// newly trips. Callers hold mu.
func (b *Breaker) transition(kind TierKind, value, threshold float64, at time.Time) bool {
	t := b.tiers[kind]
	t.lastValue = value
	breached := value >= threshold

	switch t.state {
	case StateNormal:
		if breached {
			t.state = StateBreached
			t.breachedAt = at
			t.recoveryCount = 0
			return true
		}
	case StateBreached:
		if !breached {
			t.state = StateCooldown
			t.recoveryCount = 1
		}
	case StateCooldown:
		if breached {
			t.state = StateBreached
			t.breachedAt = at
			t.recoveryCount = 0
			return true
		}
		t.recoveryCount++
		if t.recoveryCount >= b.config.RecoveryReadings {
			t.state = StateNormal
			t.recoveryCount = 0
		}
	}
	return false
}

// Snapshot returns a consistent copy of every tier's state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Breaker) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tiers:   make(map[TierKind]TierSnapshot, len(b.tiers)),
		TakenAt: time.Now(),
	}
	for kind, t := range b.tiers {
		snap.Tiers[kind] = TierSnapshot{
			Kind:          kind,
			State:         t.state,
			LastValue:     t.lastValue,
			Threshold:     b.threshold(kind),
			BreachedAt:    t.breachedAt,
			RecoveryCount: t.recoveryCount,
		}
	}
	return snap
}

// threshold returns the configured threshold for a tier.
func (b *Breaker) threshold(kind TierKind) float64 {
	switch kind {
	case TierDailyLoss:
		return b.config.DailyLossPct
	case TierDrawdown:
		return b.config.DrawdownPct
	case TierConsecutiveLosses:
		return float64(b.config.ConsecutiveLosses)
	case TierVolatilitySpike:
		return b.config.VolatilitySpikeLevel
	default:
		return 0
	}
}

// ResetSession returns every tier to NORMAL. Called at session boundaries.
func (b *Breaker) ResetSession(ctx context.Context) {
	b.mu.Lock()
	for _, t := range b.tiers {
		t.state = StateNormal
		t.recoveryCount = 0
	}
	b.mu.Unlock()
	b.persist(ctx)
}

// ForceReset manually returns one tier to NORMAL.
func (b *Breaker) ForceReset(ctx context.Context, kind TierKind) error {
	b.mu.Lock()
	t, ok := b.tiers[kind]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("unknown breaker tier %q", kind)
	}
	t.state = StateNormal
	t.recoveryCount = 0
	b.mu.Unlock()
	b.persist(ctx)
	return nil
}

// ForceBreach manually trips one tier. Used by operators to halt trading.
func (b *Breaker) ForceBreach(ctx context.Context, kind TierKind) error {
	b.mu.Lock()
	t, ok := b.tiers[kind]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("unknown breaker tier %q", kind)
	}
	t.state = StateBreached
	t.breachedAt = time.Now()
	t.recoveryCount = 0
	b.mu.Unlock()
	b.persist(ctx)
	return nil
}

// Restore loads persisted tier state, if any. Called once at startup.
func (b *Breaker) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	snap, ok, err := b.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore breaker snapshot: %w", err)
	}
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, saved := range snap.Tiers {
		if t, exists := b.tiers[kind]; exists {
			t.state = saved.State
			t.lastValue = saved.LastValue
			t.breachedAt = saved.BreachedAt
			t.recoveryCount = saved.RecoveryCount
		}
	}
	return nil
}

// persist saves the current snapshot when a store is configured. Snapshot
// failures are deliberately not fatal to the trading path.
func (b *Breaker) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	_ = b.store.SaveSnapshot(ctx, b.Snapshot())
}
