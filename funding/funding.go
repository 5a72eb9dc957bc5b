package funding

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/errors"
)

// Request is a single transfer of an amount to a recipient. It is never
// modified once read from a Source.
type Request struct {
	Recipient common.Address
	Amount    amount.Amount
}

func (r Request) String() string {
	return fmt.Sprintf("%s:%s", r.Recipient.Hex(), r.Amount)
}

// Source produces the transfer requests of a run. A source is consulted
// once, at the start of a run.
type Source interface {
	Requests(ctx context.Context) ([]Request, error)
}

// List is a static Source.
type List []Request

var _ Source = List(nil)

// Requests implements Source interface.
func (l List) Requests(context.Context) ([]Request, error) {
	return l, nil
}

// Multi returns a source that concatenates the requests of all given
// sources, in order.
func Multi(sources ...Source) Source {
	return multiSource(sources)
}

type multiSource []Source

func (m multiSource) Requests(ctx context.Context) ([]Request, error) {
	var all []Request
	for i, s := range m {
		reqs, err := s.Requests(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "source #%d", i)
		}
		all = append(all, reqs...)
	}
	return all, nil
}

// Total returns the sum of all requested amounts.
func Total(reqs []Request) (amount.Amount, error) {
	var total amount.Amount
	for i, r := range reqs {
		var err error
		if total, err = total.Add(r.Amount); err != nil {
			return amount.Amount{}, errors.Wrapf(err, "request #%d", i)
		}
	}
	return total, nil
}
