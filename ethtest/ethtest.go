/*
Package ethtest provides helpers for testing against a local development
node.

The node is an anvil process (https://github.com/foundry-rs/foundry). Tests
using it are skipped when the binary is not available.
*/
package ethtest

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/iov-one/fundtool/fundtest/assert"
)

const (
	// ChainID is the chain id of a development node.
	ChainID = 31337
	// FundedKey is the private key of the first development account. It
	// holds 10000 ether on a fresh node.
	FundedKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

// TestReporter is the minimal subset of testing.TB needed to run these test
// helpers.
type TestReporter interface {
	assert.Tester
	Skipf(string, ...interface{})
	Logf(string, ...interface{})
}

// RunAnvil starts a development node listening on a free local port and
// returns its RPC URL. Returned cleanup function ensures the process has
// stopped and blocks until it did.
//
// Set FORCE_ETH_TEST=1 environment variable to fail the test if the binary
// is not available. This might be desired when running tests by CI.
//
// Set ETH_DEBUG=1 environment variable to output all node logs.
func RunAnvil(ctx context.Context, t TestReporter) (url string, cleanup func()) {
	t.Helper()

	path, err := exec.LookPath("anvil")
	if err != nil {
		if os.Getenv("FORCE_ETH_TEST") != "1" {
			t.Skipf("anvil binary not found. Set FORCE_ETH_TEST=1 to fail this test.")
		} else {
			t.Fatalf("anvil binary not found. Do not set FORCE_ETH_TEST=1 to skip this test.")
		}
	}

	port, err := freePort()
	if err != nil {
		t.Fatalf("cannot find a free port: %s", err)
	}

	cmd := exec.CommandContext(ctx, path,
		"--port", fmt.Sprint(port),
		"--chain-id", fmt.Sprint(ChainID),
		"--block-time", "1",
	)
	if os.Getenv("ETH_DEBUG") != "" {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("anvil process failed: %s", err)
	}
	t.Logf("Running %s pid=%d", path, cmd.Process.Pid)

	done := make(chan struct{})
	var once sync.Once
	cleanup = func() {
		once.Do(func() {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			close(done)
		})
		<-done
	}
	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()

	url = fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitReady(ctx, url, 10*time.Second); err != nil {
		cleanup()
		t.Fatalf("anvil not ready: %s", err)
	}
	return url, cleanup
}

// waitReady polls the node until it answers a chain id request.
func waitReady(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		client, err := ethclient.DialContext(ctx, url)
		if err == nil {
			_, err = client.ChainID(ctx)
			client.Close()
			if err == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
