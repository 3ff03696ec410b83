package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	replay "github.com/sieniven/xlayer-replay"
	"github.com/sieniven/xlayer-replay/kafka"
	kafkaTypes "github.com/sieniven/xlayer-replay/kafka/types"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/replayapi"
	"github.com/sieniven/xlayer-replay/types"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var simulateCommand = cli.Command{
	Action:    simulateTx,
	Name:      "simulate",
	Usage:     "Build a replay plan for a single transaction",
	ArgsUsage: "<tx hash>",
	Flags:     append([]cli.Flag{&OutFlag}, commonFlags...),
}

var serveCommand = cli.Command{
	Action: serve,
	Name:   "serve",
	Usage:  "Serve the replay_* JSON-RPC namespace",
	Flags:  append([]cli.Flag{&HTTPAddrFlag}, commonFlags...),
}

var listenCommand = cli.Command{
	Action: listen,
	Name:   "listen",
	Usage:  "Consume simulation requests from kafka and publish replay plans",
	Flags:  append([]cli.Flag{&HTTPAddrFlag}, commonFlags...),
}

func main() {
	app := cli.NewApp()
	app.Name = "replay"
	app.Usage = "Rebuild profitable transactions as replayable call plans"
	app.UsageText = app.Name + ` [command] [flags]`
	app.Commands = []*cli.Command{
		&simulateCommand,
		&serveCommand,
		&listenCommand,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(cliCtx *cli.Context) log.Logger {
	level := log.FromLegacyLevel(cliCtx.Int(VerbosityFlag.Name))
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true))
	log.SetDefault(logger)
	return logger
}

func setupService(ctx context.Context, cliCtx *cli.Context) (*replay.Service, log.Logger, error) {
	logger := setupLogger(cliCtx)
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Enable {
		return nil, nil, replayapi.ErrReplayNotEnabled
	}
	svc, err := replay.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

func simulateTx(cliCtx *cli.Context) error {
	if cliCtx.NArg() != 1 {
		return fmt.Errorf("expected a single transaction hash, got %d arguments", cliCtx.NArg())
	}
	var txHash libcommon.Hash
	if err := txHash.UnmarshalText([]byte(cliCtx.Args().First())); err != nil {
		return fmt.Errorf("invalid transaction hash: %w", err)
	}

	svc, logger, err := setupService(cliCtx.Context, cliCtx)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cliCtx.Context
	if timeout := svc.Config.SimulationTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := svc.Simulator.Run(ctx, txHash, svc.Config.Rewind)
	if err != nil {
		return err
	}
	if res == nil {
		logger.Info("[Replay] No replay plan for transaction", "hash", txHash)
		return nil
	}

	msg, err := kafkaTypes.ToPlanMessage(res)
	if err != nil {
		return err
	}
	if out := cliCtx.String(OutFlag.Name); out != "" {
		if err := types.WriteToJSON(out, msg); err != nil {
			return err
		}
		logger.Info("[Replay] Replay plan written", "hash", txHash, "out", out)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

func serve(cliCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, logger, err := setupService(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer svc.Close()

	g, ctx := errgroup.WithContext(ctx)
	svc.Plans.Start(ctx)
	startMetrics(ctx, g, svc, logger)
	if err := startRPC(ctx, g, svc, logger); err != nil {
		return err
	}
	return g.Wait()
}

// listen runs the kafka listener. The JSON-RPC server also runs when an HTTP
// address is configured, so plan subscribers see kafka driven plans.
func listen(cliCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, logger, err := setupService(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer svc.Close()

	consumer, err := kafka.NewKafkaConsumer(svc.Config.Kafka)
	if err != nil {
		return err
	}
	defer consumer.Close()

	producer, err := svc.Producer(ctx)
	if err != nil {
		return err
	}
	defer producer.Close()

	g, ctx := errgroup.WithContext(ctx)
	svc.Plans.Start(ctx)
	startMetrics(ctx, g, svc, logger)
	if svc.Config.HTTPAddr != "" {
		if err := startRPC(ctx, g, svc, logger); err != nil {
			return err
		}
	}
	g.Go(func() error {
		logger.Info("[Replay] Listening for simulation requests", "topic", svc.Config.Kafka.RequestTopic, "workers", svc.Config.Workers)
		return replay.ListenSimulationRequests(ctx, consumer, producer, svc.Simulator, svc.ListenConfig(), logger)
	})
	return g.Wait()
}

// startRPC serves the replay namespace over HTTP on "/" and websocket on
// "/ws" until ctx is done.
func startRPC(ctx context.Context, g *errgroup.Group, svc *replay.Service, logger log.Logger) error {
	server := rpc.NewServer()
	if err := replayapi.Register(server, svc.API()); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", server)
	mux.Handle("/ws", server.WebsocketHandler([]string{"*"}))
	httpServer := &http.Server{
		Addr:              svc.Config.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		server.Stop()
		return err
	})
	g.Go(func() error {
		logger.Info("[Replay] Starting JSON-RPC server", "addr", svc.Config.HTTPAddr, "namespace", replayapi.Namespace)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return nil
}

func startMetrics(ctx context.Context, g *errgroup.Group, svc *replay.Service, logger log.Logger) {
	if svc.Config.MetricsAddr == "" {
		return
	}
	g.Go(func() error {
		return metrics.StartServer(ctx, svc.Config.MetricsAddr, svc.Registry, logger)
	})
}
