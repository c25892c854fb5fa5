// Command marketmaker runs one deterministic market-making simulation
// to completion, or launches the websocket transport server that hosts
// many of them concurrently.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/winstonzhaozhekai/market-making-engine/internal/accounting"
	"github.com/winstonzhaozhekai/market-making-engine/internal/config"
	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/eventlog"
	"github.com/winstonzhaozhekai/market-making-engine/internal/logger"
	"github.com/winstonzhaozhekai/market-making-engine/internal/marketmaker"
	"github.com/winstonzhaozhekai/market-making-engine/internal/risk"
	"github.com/winstonzhaozhekai/market-making-engine/internal/simulator"
	"github.com/winstonzhaozhekai/market-making-engine/internal/strategy"
	"github.com/winstonzhaozhekai/market-making-engine/internal/transport"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marketmaker:", err)
		return 1
	}

	log := logger.New(cfg.Logging)

	if cfg.Serve {
		return serve(cfg, log)
	}
	return runOneSimulation(cfg, log)
}

func serve(cfg *config.Config, log *logrus.Logger) int {
	sessionCfg := transport.SessionConfig{
		Simulation:   cfg.Simulation,
		Risk:         cfg.Risk,
		Fees:         cfg.Fees,
		StrategyName: cfg.StrategyName,
		MaxPosition:  cfg.MaxPosition,
		StartingCash: 1_000_000,
	}

	srv := transport.NewServer(sessionCfg, log)
	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
	return 0
}

func runOneSimulation(cfg *config.Config, log *logrus.Logger) int {
	var submitter marketmaker.Submitter
	var source eventSource

	if cfg.Simulation.Mode == simulator.ModeReplay {
		data, err := os.ReadFile(cfg.ReplayPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "marketmaker:", err)
			return 1
		}
		decoder := chooseDecoder(cfg.BinaryLog)
		replay := simulator.NewReplay(decoder, data)
		submitter, source = replay, replay
	} else {
		gen := simulator.NewGenerator(cfg.Simulation)
		submitter, source = gen, gen
	}

	acct := accounting.New(1_000_000, cfg.Fees)
	riskMgr := risk.New(cfg.Risk)
	strat := buildStrategy(cfg.StrategyName)

	mm := marketmaker.New(marketmaker.Config{
		Submitter:   submitter,
		Accounting:  acct,
		Risk:        riskMgr,
		Strategy:    strat,
		MaxPosition: cfg.MaxPosition,
		Log:         log,
	})

	var logFile *os.File
	var encoder eventlog.Encoder
	if cfg.EventLogPath != "" {
		f, err := os.Create(cfg.EventLogPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "marketmaker:", err)
			return 1
		}
		defer f.Close()
		logFile = f
		encoder = chooseEncoder(cfg.BinaryLog)
	}

	processed := 0
	for {
		event, ok := source.Next()
		if !ok {
			break
		}
		mm.OnMarketData(event)
		processed++

		if encoder != nil {
			bytes, err := encoder.Encode(event)
			if err != nil {
				fmt.Fprintln(os.Stderr, "marketmaker: encode:", err)
				return 1
			}
			if _, err := logFile.Write(bytes); err != nil {
				fmt.Fprintln(os.Stderr, "marketmaker: write event log:", err)
				return 1
			}
		}

		if !cfg.Quiet {
			fmt.Printf("iter=%d mid=%.4f position=%d\n", event.SequenceNumber, event.Mid(), mm.Report().Position)
		}
	}

	fmt.Println(mm.Report())

	if processed == 0 {
		return 1
	}
	return 0
}

// eventSource is the common surface of simulator.Generator and
// simulator.Replay that the run loop actually needs.
type eventSource interface {
	Next() (*domain.MarketDataEvent, bool)
}

func buildStrategy(name string) strategy.Strategy {
	if name == "reservation" {
		return strategy.NewReservationStrategy(strategy.DefaultReservationConfig())
	}
	return strategy.NewHeuristicStrategy(strategy.DefaultHeuristicConfig())
}

func chooseEncoder(binary bool) eventlog.Encoder {
	if binary {
		return eventlog.NewBinaryCodec()
	}
	return eventlog.NewTextCodec()
}

func chooseDecoder(binary bool) eventlog.Decoder {
	if binary {
		return eventlog.NewBinaryCodec()
	}
	return eventlog.NewTextCodec()
}
