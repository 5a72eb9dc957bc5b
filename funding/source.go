package funding

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/libs/log"
)

// File is a Source reading a funding list file.
type File struct {
	Path   string
	Logger log.Logger
}

var _ Source = (*File)(nil)

// Requests implements Source interface.
func (f *File) Requests(ctx context.Context) ([]Request, error) {
	fd, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "open funding list: %s", err)
	}
	defer fd.Close()
	return ParseList(fd, loggerOrNop(f.Logger).With("source", f.Path))
}

// Exec is a Source that runs an executable once and reads the requests from
// its standard output. The output is either a JSON array of
//   {"address": "0x...", "amount": "<amount>"}
// objects, or a funding list in the line format.
//
// The executable runs with the privileges of the current process. Running
// only trusted programs is up to the caller.
type Exec struct {
	Path   string
	Args   []string
	Logger log.Logger
}

var _ Source = (*Exec)(nil)

// Requests implements Source interface.
func (e *Exec) Requests(ctx context.Context) ([]Request, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "run %s: %s: %s", e.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	logger := loggerOrNop(e.Logger).With("source", e.Path)
	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) > 0 && out[0] == '[' {
		return decodeJSON(out)
	}
	return ParseList(bytes.NewReader(out), logger)
}

type jsonRequest struct {
	Address string        `json:"address"`
	Amount  amount.Amount `json:"amount"`
}

func decodeJSON(raw []byte) ([]Request, error) {
	var entries []jsonRequest
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "decode requests: %s", err)
	}
	reqs := make([]Request, 0, len(entries))
	for i, e := range entries {
		addr, err := ParseAddress(e.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "entry #%d", i)
		}
		reqs = append(reqs, Request{Recipient: addr, Amount: e.Amount})
	}
	return reqs, nil
}

func loggerOrNop(l log.Logger) log.Logger {
	if l == nil {
		return log.NewNopLogger()
	}
	return l
}
