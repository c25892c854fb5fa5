// Package config loads a run's configuration — simulation parameters,
// strategy choice, fee schedule, logging, and CLI behavior flags —
// from defaults, an optional config file, the environment, and
// command-line flags, in that increasing order of precedence. Risk
// limits are always risk.DefaultConfig(), and strategy tunables are
// not loaded here: each strategy uses its own defaults.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/logger"
	"github.com/winstonzhaozhekai/market-making-engine/internal/risk"
	"github.com/winstonzhaozhekai/market-making-engine/internal/simulator"
)

// Config is the complete, resolved configuration for one run.
type Config struct {
	Simulation simulator.Config
	Risk       risk.Config
	Fees       domain.FeeSchedule
	Logging    logger.Config

	StrategyName string // "heuristic" or "reservation"
	MaxPosition  int

	EventLogPath string
	ReplayPath   string
	BinaryLog    bool
	Quiet        bool
	Serve        bool
	ListenAddr   string
}

// Load parses args (typically os.Args[1:]) and merges them with any
// marketmaker.yaml config file and environment variables found,
// applying the conventional viper precedence: flags > env > file >
// defaults.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("marketmaker", pflag.ContinueOnError)

	flags.String("mode", "simulate", "simulate or replay")
	flags.String("strategy", "heuristic", "heuristic or reservation")
	flags.Uint32("seed", 42, "deterministic RNG seed")
	flags.Int("iterations", 1000, "number of market data events to generate")
	flags.Int("latency-ms", 10, "logical clock increment per event, in milliseconds")
	flags.String("instrument", "XYZ", "instrument symbol")
	flags.Float64("initial-price", 100.0, "starting mid price")
	flags.Float64("spread", 0.1, "synthetic quoted spread")
	flags.Float64("volatility", 0.5, "per-event volatility used by the GBM mid walk")
	flags.String("event-log", "", "path to write the event log (text, or binary with --binary-log)")
	flags.String("replay", "", "path to an existing event log to replay")
	flags.Bool("binary-log", false, "use the binary event log format instead of text")
	flags.Bool("quiet", false, "suppress per-tick console output")
	flags.Bool("serve", false, "launch the transport server instead of running one simulation")
	flags.String("listen-addr", ":8080", "transport server listen address")
	flags.Int("max-position", 1000, "maximum absolute inventory the strategy sizes against")
	flags.Float64("fee-bps", 0, "basis-point fee applied to every fill notional")
	flags.Float64("maker-rebate-per-share", 0, "per-share rebate credited on maker fills")
	flags.Float64("taker-fee-per-share", 0, "per-share fee charged on taker fills")
	flags.String("log-level", "info", "debug, info, warn, or error")
	flags.String("log-format", "text", "text or json")
	flags.String("log-output", "stdout", "stdout or a file path")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("marketmaker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	v.SetEnvPrefix("MM")
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	_ = v.ReadInConfig() // absence of a config file is not an error

	rc := risk.DefaultConfig()

	return &Config{
		Simulation: simulator.Config{
			Instrument:   v.GetString("instrument"),
			InitialPrice: v.GetFloat64("initial-price"),
			Spread:       v.GetFloat64("spread"),
			Volatility:   v.GetFloat64("volatility"),
			LatencyMs:    v.GetInt("latency-ms"),
			Iterations:   v.GetInt("iterations"),
			Seed:         uint32(v.GetInt64("seed")),
			Mode:         parseMode(v.GetString("mode")),
		},
		Risk: rc,
		Fees: domain.FeeSchedule{
			FeeBps:              v.GetFloat64("fee-bps"),
			MakerRebatePerShare: v.GetFloat64("maker-rebate-per-share"),
			TakerFeePerShare:    v.GetFloat64("taker-fee-per-share"),
		},
		Logging: logger.Config{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
			Output: v.GetString("log-output"),
		},
		StrategyName: v.GetString("strategy"),
		MaxPosition:  v.GetInt("max-position"),
		EventLogPath: v.GetString("event-log"),
		ReplayPath:   v.GetString("replay"),
		BinaryLog:    v.GetBool("binary-log"),
		Quiet:        v.GetBool("quiet"),
		Serve:        v.GetBool("serve"),
		ListenAddr:   v.GetString("listen-addr"),
	}, nil
}

func parseMode(s string) simulator.Mode {
	if strings.EqualFold(s, "replay") {
		return simulator.ModeReplay
	}
	return simulator.ModeSimulate
}
