package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/fundtest"
	"github.com/iov-one/fundtool/fundtest/assert"
	"github.com/tendermint/tendermint/libs/log"
)

func TestLoadSigner(t *testing.T) {
	want := fundtest.SeqSigner(t, 1)
	t.Setenv("FUNDER_TEST_KEY", want.PrivateKeyHex())
	t.Setenv("FUNDER_TEST_EMPTY_KEY", " ")

	cases := map[string]struct {
		raw     string
		wantErr *errors.Error
	}{
		"hex key": {
			raw: want.PrivateKeyHex(),
		},
		"hex key with 0x prefix": {
			raw: "0x" + want.PrivateKeyHex(),
		},
		"surrounding white space": {
			raw: "  " + want.PrivateKeyHex() + "\n",
		},
		"key from the environment": {
			raw: "env:FUNDER_TEST_KEY",
		},
		"environment variable not set": {
			raw:     "env:FUNDER_TEST_NOT_SET",
			wantErr: errors.ErrInput,
		},
		"environment variable empty": {
			raw:     "env:FUNDER_TEST_EMPTY_KEY",
			wantErr: errors.ErrInput,
		},
		"no key": {
			raw:     "",
			wantErr: errors.ErrInput,
		},
		"invalid key": {
			raw:     "zzzz",
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var out bytes.Buffer
			s, err := loadSigner(tc.raw, &out)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, want.Address(), s.Address())
			assert.Equal(t, 0, out.Len())
		})
	}
}

func TestLoadSignerGenerate(t *testing.T) {
	var out bytes.Buffer
	s, err := loadSigner("generate", &out)
	assert.Nil(t, err)

	printed := out.String()
	if !strings.Contains(printed, s.Address().Hex()) {
		t.Fatalf("generated address not printed: %q", printed)
	}
	if !strings.Contains(printed, s.PrivateKeyHex()) {
		t.Fatalf("generated privkey not printed: %q", printed)
	}
}

func TestFundingSource(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "fundings.txt")
	content := strings.Join([]string{
		"# comment",
		fundtest.SeqAddress(1).Hex() + ":1gwei",
		fundtest.SeqAddress(2).Hex() + ":2gwei",
		"",
	}, "\n")
	if err := os.WriteFile(list, []byte(content), 0600); err != nil {
		t.Fatalf("cannot write list: %s", err)
	}

	logger := log.NewNopLogger()

	t.Run("nothing specified", func(t *testing.T) {
		_, err := fundingSource("", "  ", logger)
		assert.IsErr(t, errors.ErrInput, err)
	})

	t.Run("list file", func(t *testing.T) {
		src, err := fundingSource(list, "", logger)
		assert.Nil(t, err)
		reqs, err := src.Requests(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, 2, len(reqs))
		assert.Equal(t, fundtest.SeqAddress(2), reqs[1].Recipient)
	})

	t.Run("missing list file", func(t *testing.T) {
		src, err := fundingSource(filepath.Join(dir, "missing.txt"), "", logger)
		assert.Nil(t, err)
		_, err = src.Requests(context.Background())
		assert.IsErr(t, errors.ErrInput, err)
	})

	t.Run("list file and executable", func(t *testing.T) {
		if _, err := os.Stat("/bin/cat"); err != nil {
			t.Skip("cat is not available")
		}
		src, err := fundingSource(list, "/bin/cat "+list, logger)
		assert.Nil(t, err)
		reqs, err := src.Requests(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, 4, len(reqs))
	})
}
