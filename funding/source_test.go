package funding

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/fundtest/assert"
)

func TestFileSource(t *testing.T) {
	dir, err := ioutil.TempDir("", "funding")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "fundings.txt")
	content := "0x01:1ETH\n0x02:2gwei\n"
	assert.Nil(t, ioutil.WriteFile(path, []byte(content), 0600))

	reqs, err := (&File{Path: path}).Requests(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(reqs))
	assert.Equal(t, amount.NewAmountIn(2, amount.Gwei), reqs[1].Amount)

	_, err = (&File{Path: filepath.Join(dir, "missing")}).Requests(context.Background())
	assert.IsErr(t, errors.ErrInput, err)
}

func TestExecSource(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	cases := map[string]struct {
		script  string
		want    []Request
		wantErr *errors.Error
	}{
		"json output": {
			script: `echo '[{"address": "0x01", "amount": "3"}, {"address": "0x02", "amount": 4}]'`,
			want: []Request{
				{Recipient: common.HexToAddress("0x01"), Amount: amount.NewAmount(3)},
				{Recipient: common.HexToAddress("0x02"), Amount: amount.NewAmount(4)},
			},
		},
		"line output": {
			script: `printf '0x01:1gwei\n0x02:2gwei\n'`,
			want: []Request{
				{Recipient: common.HexToAddress("0x01"), Amount: amount.NewAmountIn(1, amount.Gwei)},
				{Recipient: common.HexToAddress("0x02"), Amount: amount.NewAmountIn(2, amount.Gwei)},
			},
		},
		"failing program": {
			script:  `echo broken >&2; exit 3`,
			wantErr: errors.ErrInput,
		},
		"invalid json address": {
			script:  `echo '[{"address": "zz", "amount": "3"}]'`,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			src := &Exec{Path: sh, Args: []string{"-c", tc.script}}
			reqs, err := src.Requests(context.Background())
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.want, reqs)
		})
	}
}

func TestMultiSource(t *testing.T) {
	a := List{{Recipient: common.HexToAddress("0x01")}}
	b := List{{Recipient: common.HexToAddress("0x02")}, {Recipient: common.HexToAddress("0x03")}}

	reqs, err := Multi(a, b).Requests(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 3, len(reqs))
	assert.Equal(t, common.HexToAddress("0x03"), reqs[2].Recipient)
}
