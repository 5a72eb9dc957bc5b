package channel

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/errors"
)

// Offline writes signed transactions down instead of sending them. Every
// transaction is a single line of hex encoded payload. Offline submissions
// resolve immediately.
type Offline struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	count  int
}

var _ Channel = (*Offline)(nil)

// NewOffline creates or truncates the file at given path and returns a
// channel appending to it.
func NewOffline(path string) (*Offline, error) {
	fd, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "offline output: %s", err)
	}
	return &Offline{w: fd, closer: fd}, nil
}

// NewOfflineWriter returns a channel writing to given writer.
func NewOfflineWriter(w io.Writer) *Offline {
	return &Offline{w: w}
}

// Online implements Channel interface.
func (o *Offline) Online() bool {
	return false
}

// Submit implements Channel interface.
func (o *Offline) Submit(ctx context.Context, signed *builder.Signed) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line := make([]byte, hex.EncodedLen(len(signed.Raw))+1)
	hex.Encode(line, signed.Raw)
	line[len(line)-1] = '\n'

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(line); err != nil {
		return nil, errors.Wrapf(errors.ErrState, "write transaction: %s", err)
	}
	o.count++

	sub := NewSubmission(signed.Hash, signed.Nonce)
	sub.Resolve(nil)
	return sub, nil
}

// Count returns the number of transactions written.
func (o *Offline) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// Close releases the output file.
func (o *Offline) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}
