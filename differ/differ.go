package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/prometheus/client_golang/prometheus"
)

// --- Config and Main Struct ---

// PoolDiffer computes the diff between two views of the same pool.
type PoolDiffer func(old, new reservepool.State) reservepool.PoolDiff

// StateDifferConfig holds the pool differ and dependencies.
type StateDifferConfig struct {
	PoolDiffer PoolDiffer            // Optional. Defaults to reservepool.Differ.
	Registry   prometheus.Registerer // Required for metrics.
	Logger     Logger                // Required for logging.
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer is the main differ engine, with metrics and logging.
type StateDiffer struct {
	metrics    *Metrics
	logger     Logger
	poolDiffer PoolDiffer
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolDiffer := cfg.PoolDiffer
	if poolDiffer == nil {
		poolDiffer = reservepool.Differ
	}

	return &StateDiffer{
		metrics:    NewMetrics(cfg.Registry),
		logger:     cfg.Logger,
		poolDiffer: poolDiffer,
	}, nil
}

// Diff compares two states of the same pool. new must not be older than old.
func (d *StateDiffer) Diff(old, new *engine.State) (*StateDiff, error) {
	totalTimer := prometheus.NewTimer(d.metrics.diffDuration.WithLabelValues())
	defer totalTimer.ObserveDuration()

	if old.ChainID != new.ChainID {
		return nil, fmt.Errorf("chain id changed from %d to %d", old.ChainID, new.ChainID)
	}
	if old.Pool.Address != new.Pool.Address {
		return nil, fmt.Errorf("pool changed from %s to %s", old.Pool.Address, new.Pool.Address)
	}
	if new.Sequence() < old.Sequence() {
		return nil, fmt.Errorf("new state at sequence %d is older than %d", new.Sequence(), old.Sequence())
	}

	poolDiff := d.poolDiffer(old.Pool, new.Pool)
	if poolDiff.IsEmpty() && new.Sequence() != old.Sequence() {
		d.logger.Debug("Sequence advanced without reserve changes", "from", old.Sequence(), "to", new.Sequence())
	}

	return &StateDiff{
		Timestamp:    uint64(time.Now().UnixNano()),
		FromSequence: old.Sequence(),
		ToSequence:   new.Sequence(),
		Pool:         poolDiff,
	}, nil
}
