package patcher

import (
	"errors"
	"fmt"

	"github.com/defistate/tokenswap-go/differ"
	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
)

// --- Type Definitions ---

// PoolPatcher applies a pool diff to the previous pool view.
//
// CONTRACT: implementations MUST NOT mutate prevState. They must create a copy.
type PoolPatcher func(prevState reservepool.State, diff reservepool.PoolDiff) (reservepool.State, error)

// --- Config and Main Struct ---

type StatePatcherConfig struct {
	// PoolPatcher defaults to reservepool.Patcher.
	PoolPatcher PoolPatcher
}

func (c *StatePatcherConfig) validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	return nil
}

// StatePatcher is the engine for applying state updates.
type StatePatcher struct {
	poolPatcher PoolPatcher
}

// NewStatePatcher constructs a new patcher from a configuration.
func NewStatePatcher(cfg *StatePatcherConfig) (*StatePatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolPatcher := cfg.PoolPatcher
	if poolPatcher == nil {
		poolPatcher = reservepool.Patcher
	}
	return &StatePatcher{poolPatcher: poolPatcher}, nil
}

// --- Implementation ---

// Patch creates a new State by applying the Diff to the Old State.
// Token metadata is shared with the old state; the pool view is replaced by the PoolPatcher.
func (p *StatePatcher) Patch(oldState *engine.State, diff *differ.StateDiff) (*engine.State, error) {
	// 1. Integrity Check
	if oldState.Sequence() != diff.FromSequence {
		return nil, fmt.Errorf("patcher: mismatch fromSequence (state=%d, diff=%d)", oldState.Sequence(), diff.FromSequence)
	}

	// 2. Apply the pool diff.
	pool := diff.Pool
	pool.Sequence = diff.ToSequence
	newPool, err := p.poolPatcher(oldState.Pool, pool)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch pool %s: %w", oldState.Pool.Address, err)
	}

	// 3. Return Final State
	return &engine.State{
		ChainID:   oldState.ChainID, // Chain ID implies fork consistency
		Timestamp: diff.Timestamp,   // The time the diff was calculated
		Tokens:    oldState.Tokens,
		Pool:      newPool,
	}, nil
}
