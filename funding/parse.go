package funding

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// isHexAddress matches a hex encoded address that is at most 20 bytes long.
// Shorter values are left padded with zeros.
var isHexAddress = regexp.MustCompile(`^(0[xX])?[0-9a-fA-F]{1,40}$`).MatchString

// ParseAddress reads a hex encoded address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !isHexAddress(s) {
		return common.Address{}, errors.Wrapf(errors.ErrInput, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseLine reads a single funding list line in the format
//   <address>:<amount> [# comment]
// Lines that do not contain at least two colon separated fields, once the
// comment is removed, are not funding entries and ok is false. A line that
// looks like an entry but holds an invalid address or amount returns an
// error.
func ParseLine(line string) (req Request, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Split(line, ":")
	if len(fields) < 2 {
		return Request{}, false, nil
	}

	addr, err := ParseAddress(fields[0])
	if err != nil {
		return Request{}, false, err
	}
	amt, err := amount.Parse(fields[1])
	if err != nil {
		return Request{}, false, err
	}
	return Request{Recipient: addr, Amount: amt}, true, nil
}

// ParseList reads a line oriented funding list. Blank, comment and malformed
// lines are skipped. Entries that cannot be parsed are skipped as well and
// reported to the logger together with their line number.
func ParseList(r io.Reader, logger log.Logger) ([]Request, error) {
	var reqs []Request
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; s.Scan(); n++ {
		req, ok, err := ParseLine(s.Text())
		if err != nil {
			logger.Error("skipping invalid funding entry", "line", n, "err", err)
			continue
		}
		if ok {
			reqs = append(reqs, req)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return reqs, nil
}
