package differ

import "github.com/defistate/tokenswap-go/protocols/reservepool"

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateDiff represents a summary of pool changes FromSequence to ToSequence.
type StateDiff struct {
	Timestamp    uint64               `json:"timestamp"`
	FromSequence uint64               `json:"fromSequence"`
	ToSequence   uint64               `json:"toSequence"`
	Pool         reservepool.PoolDiff `json:"pool"`
}

// IsEmpty returns true if the diff carries no pool changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Pool.IsEmpty()
}
