package dispatch

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/channel"
)

// Pending is an accepted transaction waiting for completion.
type Pending struct {
	Nonce      uint64
	ID         common.Hash
	Transfers  int
	Total      amount.Amount
	Raw        []byte
	Submission *channel.Submission
}

var _ btree.Item = (*Pending)(nil)

// Less implements btree.Item interface. Pending transactions are ordered by
// nonce.
func (p *Pending) Less(than btree.Item) bool {
	return p.Nonce < than.(*Pending).Nonce
}

// pendingSet holds accepted transactions ordered by nonce. Its size is the
// number of transactions in flight.
type pendingSet struct {
	bt *btree.BTree
}

func newPendingSet() *pendingSet {
	return &pendingSet{bt: btree.New(2)}
}

func (s *pendingSet) Len() int {
	return s.bt.Len()
}

func (s *pendingSet) Add(p *Pending) {
	s.bt.ReplaceOrInsert(p)
}

// Oldest returns the transaction with the lowest nonce, or nil.
func (s *pendingSet) Oldest() *Pending {
	if item := s.bt.Min(); item != nil {
		return item.(*Pending)
	}
	return nil
}

// TakeResolved removes and returns all resolved transactions, lowest nonce
// first.
func (s *pendingSet) TakeResolved() []*Pending {
	var done []*Pending
	s.bt.Ascend(func(item btree.Item) bool {
		p := item.(*Pending)
		if p.Submission.Resolved() {
			done = append(done, p)
		}
		return true
	})
	for _, p := range done {
		s.bt.Delete(p)
	}
	return done
}
