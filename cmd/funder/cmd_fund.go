package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iov-one/fundtool"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/channel"
	"github.com/iov-one/fundtool/contracts"
	"github.com/iov-one/fundtool/dispatch"
	"github.com/iov-one/fundtool/distributor"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/stats"
	"golang.org/x/sync/errgroup"
)

func cmdFund(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Send funds from a single wallet to all accounts of the funding list.

The funding list contains one "address:amount" entry per line. An amount
without a unit is counted in wei, "gwei", "eth" and "ether" units are
accepted, for example "0x5aA...:1.5ETH". A funding executable must print
either such a list or a JSON array of {"address": ..., "amount": ...}
objects.

Transactions are sent in nonce order, with no more than -maxpending of them
waiting for inclusion at any time. With -use-distributor many transfers are
folded into a single call of the distributor contract, deployed by the first
run and reused by later runs.

With -offline signed transactions are written to a file, one hex encoded
transaction per line, instead of being sent. Offline mode requires -chainid
and -nonce, the wallet balance is not verified.

Every flag can be set using the FUNDER_<NAME> environment variable, for
example FUNDER_MAXPENDING for -maxpending.
`)
		fl.PrintDefaults()
	}
	var (
		fundingsFl = fl.String("fundings", env("FUNDER_FUNDINGS", ""),
			"Path to the funding list file.")
		fundingsExecFl = fl.String("fundings-exec", env("FUNDER_FUNDINGS_EXEC", ""),
			"Executable, with optional arguments, printing the fundings.")
		rpcFl = fl.String("rpc", env("FUNDER_RPC", "http://127.0.0.1:8545"),
			"The RPC host to send transactions to.")
		privkeyFl = fl.String("privkey", env("FUNDER_PRIVKEY", ""),
			`The private key of the wallet to send funds from. Hex encoded, "env:NAME" to read it from the NAME environment variable or "generate" to create a new wallet.`)
		maxPendingFl = fl.Int("maxpending", envInt("FUNDER_MAXPENDING", 10),
			"The maximum number of parallel pending transactions.")
		maxFeeFl = flAmount(fl, "maxfeepergas", env("FUNDER_MAXFEEPERGAS", "20"), amount.Gwei,
			"The maximum fee per gas, in gwei unless a unit is given.")
		maxPrioFeeFl = flAmount(fl, "maxpriofee", env("FUNDER_MAXPRIOFEE", "1.2"), amount.Gwei,
			"The maximum priority fee per gas, in gwei unless a unit is given.")
		gasLimitFl = fl.Uint64("gaslimit", envUint64("FUNDER_GASLIMIT", 50000),
			"Gas limit of a direct transfer.")
		batchGasLimitFl = fl.Uint64("batch-gaslimit", envUint64("FUNDER_BATCH_GASLIMIT", 500000),
			"Gas limit of a distributor call and of the distributor deployment.")
		batchGasPerTransferFl = fl.Uint64("batch-gas-per-transfer", envUint64("FUNDER_BATCH_GAS_PER_TRANSFER", 0),
			"When set, the gas limit of a distributor call is -gaslimit plus this value for each transfer.")
		useDistributorFl = fl.Bool("use-distributor", envBool("FUNDER_USE_DISTRIBUTOR", false),
			"Use a distribution contract.")
		batchSizeFl = fl.Int("distributor-batch-size", envInt("FUNDER_DISTRIBUTOR_BATCH_SIZE", 20),
			"The max size of transaction batches to send via the distributor contract.")
		artifactFl = fl.String("distributor-artifact", env("FUNDER_DISTRIBUTOR_ARTIFACT", ""),
			"Path to the compiled distributor contract. Required to deploy or verify the contract.")
		contractNameFl = fl.String("distributor-contract", env("FUNDER_DISTRIBUTOR_CONTRACT", "Distributor"),
			"Name of the contract in a solc combined JSON artifact.")
		stateFl = fl.String("distributor-state", env("FUNDER_DISTRIBUTOR_STATE", distributor.DefaultStatePath),
			"Path to the distributor state file.")
		compactFl = fl.Bool("distributor-compact", envBool("FUNDER_DISTRIBUTOR_COMPACT", true),
			"The distributor contract supports compact encodings. Disable for a contract providing only distribute(address[],uint256[]).")
		offlineFl = fl.String("offline", env("FUNDER_OFFLINE", ""),
			"Write signed transactions to this file instead of sending them.")
		chainIDFl = flOptUint64(fl, "chainid", env("FUNDER_CHAINID", ""),
			"Chain id. Required in offline mode.")
		nonceFl = flOptUint64(fl, "nonce", env("FUNDER_NONCE", ""),
			"Nonce of the first transaction. Required in offline mode.")
		receiptTimeoutFl = fl.Duration("receipt-timeout", envDuration("FUNDER_RECEIPT_TIMEOUT", 0),
			"Consider a transaction failed when not included after that long. Zero disables the timeout.")
		progressFl = fl.Duration("progress", envDuration("FUNDER_PROGRESS", 30*time.Second),
			"Interval of progress reports. Zero disables them.")
		summaryFl = fl.String("summary", env("FUNDER_SUMMARY", ""),
			`Write the run summary to this file, "-" for the standard output.`)
		kafkaBrokersFl = fl.String("kafka-brokers", env("FUNDER_KAFKA_BROKERS", ""),
			"Comma separated Kafka brokers to publish transaction events to.")
		kafkaTopicFl = fl.String("kafka-topic", env("FUNDER_KAFKA_TOPIC", "fundings"),
			"Kafka topic of transaction events.")
		logLevelFl = fl.String("log-level", env("FUNDER_LOG_LEVEL", "info"),
			"Log level: debug, info, error or none.")
		versionFl = fl.Bool("version", false, "Print the version and exit.")
	)
	fl.Parse(args)

	if *versionFl {
		return cmdVersion(input, output, nil)
	}

	logger, err := fundtool.NewLogger(output, *logLevelFl)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = fundtool.WithLogger(ctx, logger)

	signer, err := loadSigner(*privkeyFl, output)
	if err != nil {
		return err
	}
	ctx = fundtool.WithLogInfo(ctx, "wallet", signer.Address().Hex())
	logger = fundtool.GetLogger(ctx)
	src, err := fundingSource(*fundingsFl, *fundingsExecFl, logger)
	if err != nil {
		return err
	}

	conf := dispatch.DefaultConfig()
	conf.MaxPending = *maxPendingFl
	conf.Builder.TransferGas = *gasLimitFl
	conf.Builder.BatchGas = *batchGasLimitFl
	conf.Builder.DeployGas = *batchGasLimitFl
	conf.Builder.BatchGasBase = *gasLimitFl
	conf.Builder.BatchGasPerTransfer = *batchGasPerTransferFl
	conf.Builder.MaxFeePerGas = *maxFeeFl
	conf.Builder.MaxPriorityFeePerGas = *maxPrioFeeFl
	if n, ok := chainIDFl.Value(); ok {
		conf.ChainID = new(big.Int).SetUint64(n)
	}
	if n, ok := nonceFl.Value(); ok {
		conf.Nonce = &n
	}
	if *useDistributorFl {
		dconf := dispatch.DefaultDistributorConfig()
		dconf.BatchSize = *batchSizeFl
		dconf.Store = distributor.NewStateStore(*stateFl)
		if !*compactFl {
			dconf.Capabilities = batch.Capabilities{}
		}
		if *artifactFl != "" {
			a, err := contracts.LoadArtifact(*artifactFl, *contractNameFl)
			if err != nil {
				return err
			}
			dconf.Artifact = a
		}
		conf.Distributor = dconf
	}

	var ch channel.Channel
	if *offlineFl != "" {
		if conf.ChainID == nil || conf.Nonce == nil {
			return errors.Wrap(errors.ErrInput, "offline mode requires -chainid and -nonce")
		}
		offline, err := channel.NewOffline(*offlineFl)
		if err != nil {
			return err
		}
		defer offline.Close()
		ch = offline
	} else {
		bconf := channel.DefaultBroadcastConfig()
		bconf.Timeout = *receiptTimeoutFl
		if err := bconf.Validate(); err != nil {
			return err
		}
		logger.Info("connecting to rpc", "url", *rpcFl)
		broadcast, err := channel.Dial(ctx, *rpcFl, bconf, logger)
		if err != nil {
			return err
		}
		defer broadcast.Close()
		ch = broadcast
	}

	var sink stats.Sink = stats.NopSink{}
	if *kafkaBrokersFl != "" {
		ks, err := stats.NewKafkaSink(strings.Split(*kafkaBrokersFl, ","), *kafkaTopicFl, nil)
		if err != nil {
			return err
		}
		logger.Info("publishing events", "topic", *kafkaTopicFl, "run", ks.Run())
		sink = ks
	}
	defer sink.Close()

	engine, err := dispatch.New(conf, ch, signer, sink, logger)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx, src); err != nil {
		return err
	}

	runErr := runFunding(ctx, engine, *progressFl)

	summary := engine.Summary()
	if err := sink.Emit(context.Background(), stats.EventSummary, summary); err != nil {
		logger.Error("cannot publish summary", "err", err)
	}
	if err := writeSummary(*summaryFl, output, summary); err != nil {
		return errors.Append(runErr, err)
	}
	return runErr
}

// runFunding executes the engine next to the progress reporter. The reporter stops
// once the engine is done.
func runFunding(ctx context.Context, engine *dispatch.Engine, progress time.Duration) error {
	logger := fundtool.GetLogger(ctx)

	g, gctx := errgroup.WithContext(ctx)
	reportCtx, stopReport := context.WithCancel(gctx)
	defer stopReport()

	g.Go(func() error {
		defer stopReport()
		return engine.Run(gctx)
	})
	g.Go(func() error {
		return stats.ReportProgress(reportCtx, engine.Tracker(), progress, logger)
	})
	err := g.Wait()
	stats.LogProgress(logger, engine.Tracker().Snapshot())
	return err
}

func writeSummary(path string, stdout io.Writer, s stats.Summary) error {
	switch path {
	case "":
		return nil
	case "-":
		return stats.WriteSummary(stdout, s)
	}
	fd, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "summary: %s", err)
	}
	if err := stats.WriteSummary(fd, s); err != nil {
		fd.Close()
		return errors.Wrapf(errors.ErrState, "summary: %s", err)
	}
	return fd.Close()
}
