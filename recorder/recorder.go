// Package recorder writes every committed pool state to InfluxDB as a time-series point.
package recorder

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/units"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement every point is written to.
const Measurement = "reservepool"

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Writer is the subset of api.WriteAPI the recorder uses.
type Writer interface {
	WritePoint(point *write.Point)
	Flush()
}

// Source is a pool that can be snapshotted and watched for commits.
type Source interface {
	View() reservepool.State
	Watch() (<-chan struct{}, func())
}

type Config struct {
	Pool     Source
	Writer   Writer
	Chain    string // value of the "chain" tag
	Decimals uint8  // token precision used to scale float fields
	Logger   Logger
}

func (c *Config) validate() error {
	if c.Pool == nil {
		return errors.New("config: Pool is required")
	}
	if c.Writer == nil {
		return errors.New("config: Writer is required")
	}
	if c.Chain == "" {
		return errors.New("config: Chain is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Recorder turns pool commits into InfluxDB points.
type Recorder struct {
	pool     Source
	writer   Writer
	chain    string
	decimals uint8
	logger   Logger

	lastSequence uint64
	recorded     bool
}

func New(cfg Config) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Recorder{
		pool:     cfg.Pool,
		writer:   cfg.Writer,
		chain:    cfg.Chain,
		decimals: cfg.Decimals,
		logger:   cfg.Logger,
	}, nil
}

// Run records the current state and then one point per observed commit until ctx is canceled.
// Pending points are flushed on return.
func (r *Recorder) Run(ctx context.Context) {
	watch, cancel := r.pool.Watch()
	defer cancel()
	defer r.writer.Flush()

	r.logger.Info("Recorder started", "chain", r.chain)
	r.record(time.Now())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Recorder stopped", "last_sequence", r.lastSequence)
			return
		case <-watch:
			r.record(time.Now())
		}
	}
}

// record writes the pool's current view unless that sequence was already written.
func (r *Recorder) record(timestamp time.Time) {
	state := r.pool.View()
	if r.recorded && state.Sequence == r.lastSequence {
		return
	}
	r.writer.WritePoint(r.Point(timestamp, state))
	r.lastSequence = state.Sequence
	r.recorded = true
	r.logger.Debug("Recorded pool state", "sequence", state.Sequence)
}

// Point converts a pool state into a point. Float fields are scaled by the configured decimals.
func (r *Recorder) Point(timestamp time.Time, state reservepool.State) *write.Point {
	reserveA := units.ToDecimal(state.ReserveA, r.decimals)
	reserveB := units.ToDecimal(state.ReserveB, r.decimals)

	tags := map[string]string{
		"chain":  r.chain,
		"pool":   state.Address.Hex(),
		"status": string(state.Status()),
		"fee":    strconv.Itoa(int(state.FeeBps)) + "bps",
	}
	fields := map[string]interface{}{
		"reserve_a":    reserveA.InexactFloat64(),
		"reserve_b":    reserveB.InexactFloat64(),
		"total_shares": units.ToDecimal(state.TotalShares, r.decimals).InexactFloat64(),
		"sequence":     int64(state.Sequence),
	}
	if state.Status() == reservepool.StatusActive {
		fields["price_a"] = reserveB.Div(reserveA).InexactFloat64()
		fields["price_b"] = reserveA.Div(reserveB).InexactFloat64()
	}

	return write.NewPoint(Measurement, tags, fields, timestamp)
}
