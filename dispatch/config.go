package dispatch

import (
	"math/big"
	"time"

	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/contracts"
	"github.com/iov-one/fundtool/distributor"
	"github.com/iov-one/fundtool/errors"
)

// Config configures an Engine.
type Config struct {
	// MaxPending is the highest number of transactions in flight.
	MaxPending int
	// PollInterval is how long the engine waits for a free slot before
	// checking the pending transactions again.
	PollInterval time.Duration
	// RestartDelay is the pause before the funding loop restarts after a
	// failure.
	RestartDelay time.Duration
	// ConnectRetryDelay is the pause between two attempts to establish a
	// session with the node.
	ConnectRetryDelay time.Duration

	// ChainID and Nonce are required in offline mode. In online mode they
	// are read from the node unless set.
	ChainID *big.Int
	Nonce   *uint64

	Builder builder.Config

	// Distributor enables batching. Nil means every request is sent as a
	// direct transfer.
	Distributor *DistributorConfig
}

// DistributorConfig configures batching through the distributor contract.
type DistributorConfig struct {
	// BatchSize is the maximum number of transfers in a single call.
	BatchSize    int
	Store        *distributor.StateStore
	Artifact     *contracts.Artifact
	Capabilities batch.Capabilities
}

// DefaultConfig returns the configuration used when nothing is customized.
func DefaultConfig() Config {
	return Config{
		MaxPending:        10,
		PollInterval:      2 * time.Second,
		RestartDelay:      5 * time.Second,
		ConnectRetryDelay: 5 * time.Second,
		Builder:           builder.DefaultConfig(),
	}
}

// DefaultDistributorConfig returns the batching configuration used when
// nothing is customized.
func DefaultDistributorConfig() *DistributorConfig {
	return &DistributorConfig{
		BatchSize:    20,
		Store:        distributor.NewStateStore(distributor.DefaultStatePath),
		Capabilities: batch.AllCapabilities(),
	}
}

// Validate returns an error if the configuration cannot be used.
func (c Config) Validate() error {
	if c.MaxPending < 1 {
		return errors.Wrap(errors.ErrInput, "max pending must be at least 1")
	}
	if c.PollInterval <= 0 {
		return errors.Wrap(errors.ErrInput, "poll interval must be greater than zero")
	}
	if c.RestartDelay < 0 {
		return errors.Wrap(errors.ErrInput, "restart delay must not be negative")
	}
	if c.ConnectRetryDelay <= 0 {
		return errors.Wrap(errors.ErrInput, "connect retry delay must be greater than zero")
	}
	if c.ChainID != nil && c.ChainID.Sign() <= 0 {
		return errors.Wrap(errors.ErrInput, "chain id must be greater than zero")
	}
	if d := c.Distributor; d != nil {
		if d.BatchSize < 1 {
			return errors.Wrap(errors.ErrInput, "distributor batch size must be at least 1")
		}
		if d.Store == nil {
			return errors.Wrap(errors.ErrInput, "distributor state store is required")
		}
	}
	return errors.Wrap(c.Builder.Validate(), "builder")
}
