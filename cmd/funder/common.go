package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/funding"
	"github.com/tendermint/tendermint/libs/log"
)

// generateKey is the -privkey value requesting a new key.
const generateKey = "generate"

// envKeyPrefix marks a -privkey value naming an environment variable that
// holds the key.
const envKeyPrefix = "env:"

// loadSigner returns the wallet signer for given -privkey value. The value
// is either a hex encoded private key, "env:NAME" to read the key from an
// environment variable or "generate" to create a new key. A generated key is
// written to out so that the wallet can be used again.
func loadSigner(raw string, out io.Writer) (*builder.KeySigner, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil, errors.Wrap(errors.ErrInput, "no wallet privkey specified")
	case raw == generateKey:
		s, err := builder.GenerateKeySigner()
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "generated wallet %s\nprivkey: %s\n", s.Address().Hex(), s.PrivateKeyHex())
		return s, nil
	case strings.HasPrefix(raw, envKeyPrefix):
		name := strings.TrimPrefix(raw, envKeyPrefix)
		v, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil, errors.Wrapf(errors.ErrInput, "environment variable %q holding the privkey is not set", name)
		}
		return builder.ParseKeySigner(v)
	default:
		return builder.ParseKeySigner(raw)
	}
}

// fundingSource returns the source reading the funding list file and the
// output of the funding executable, whichever are given. The executable
// value is split on white space into the program path and its arguments.
func fundingSource(listPath, execLine string, logger log.Logger) (funding.Source, error) {
	var sources []funding.Source
	if listPath != "" {
		sources = append(sources, &funding.File{Path: listPath, Logger: logger})
	}
	if fields := strings.Fields(execLine); len(fields) > 0 {
		sources = append(sources, &funding.Exec{Path: fields[0], Args: fields[1:], Logger: logger})
	}
	switch len(sources) {
	case 0:
		return nil, errors.Wrap(errors.ErrInput, "no fundings specified")
	case 1:
		return sources[0], nil
	default:
		return funding.Multi(sources...), nil
	}
}
