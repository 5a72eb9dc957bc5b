package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/fundtool/builder"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Generate a new wallet private key.

The hex encoded private key is written on the first line, the wallet address
on the second one. Keep the private key secret.
`)
		fl.PrintDefaults()
	}
	fl.Parse(args)

	s, err := builder.GenerateKeySigner()
	if err != nil {
		return fmt.Errorf("cannot generate key: %s", err)
	}
	fmt.Fprintln(output, s.PrivateKeyHex())
	fmt.Fprintln(output, s.Address().Hex())
	return nil
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out the wallet address of a private key.
`)
		fl.PrintDefaults()
	}
	var (
		privkeyFl = fl.String("privkey", env("FUNDER_PRIVKEY", ""),
			`Hex encoded private key or "env:NAME" to read it from the NAME environment variable. You can use FUNDER_PRIVKEY environment variable to set it.`)
	)
	fl.Parse(args)

	if *privkeyFl == generateKey {
		return fmt.Errorf("use keygen command to generate a key")
	}
	s, err := loadSigner(*privkeyFl, output)
	if err != nil {
		return fmt.Errorf("cannot load key: %s", err)
	}
	fmt.Fprintln(output, s.Address().Hex())
	return nil
}
