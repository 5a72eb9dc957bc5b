package channel

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/errors"
)

// Submission represents an accepted transaction. Its id is known. The
// completion is signaled by closing the Done channel, after which Err and
// Receipt can be read.
type Submission struct {
	id    common.Hash
	nonce uint64

	once    sync.Once
	done    chan struct{}
	receipt *Receipt
	err     error
}

// NewSubmission returns an unresolved submission of a transaction with
// given id.
func NewSubmission(id common.Hash, nonce uint64) *Submission {
	return &Submission{
		id:    id,
		nonce: nonce,
		done:  make(chan struct{}),
	}
}

// ID returns the transaction hash.
func (s *Submission) ID() common.Hash {
	return s.id
}

// Nonce returns the nonce the transaction was signed with.
func (s *Submission) Nonce() uint64 {
	return s.nonce
}

// Done returns a channel closed when the submission resolves.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Resolved returns true if the submission completed, successfully or not.
func (s *Submission) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the completion error. It must be called only after the
// submission is resolved and returns ErrState otherwise.
func (s *Submission) Err() error {
	if !s.Resolved() {
		return errors.Wrap(errors.ErrState, "submission not resolved")
	}
	return s.err
}

// Receipt returns the receipt of a resolved submission. It is nil for a
// failed submission and in offline mode.
func (s *Submission) Receipt() *Receipt {
	if !s.Resolved() {
		return nil
	}
	return s.receipt
}

// Wait blocks until the submission resolves or the context is cancelled.
func (s *Submission) Wait(ctx context.Context) (*Receipt, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return s.receipt, s.err
	}
}

// Resolve completes the submission successfully. Only the first resolution
// of a submission has an effect.
func (s *Submission) Resolve(r *Receipt) {
	s.once.Do(func() {
		s.receipt = r
		close(s.done)
	})
}

// Reject completes the submission with an error. Only the first resolution
// of a submission has an effect.
func (s *Submission) Reject(err error) {
	if err == nil {
		err = errors.Wrap(errors.ErrRejected, "unknown reason")
	}
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}
