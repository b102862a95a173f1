package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/rpcthrottle"
	"github.com/adamwoolhether/rpcthrottle/internal/config"
	"github.com/adamwoolhether/rpcthrottle/internal/metrics"
	"github.com/adamwoolhether/rpcthrottle/middleware"
	"github.com/adamwoolhether/rpcthrottle/retry"
	"github.com/adamwoolhether/rpcthrottle/throttle"
	"github.com/adamwoolhether/rpcthrottle/transport"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the transaction count of the most recent blocks",
	Long: `Fetch the current block number, then each of the most recent
scan.blocks blocks, printing the number of transactions in each.

Every call passes through the throttle, so a large scan against a
rate-limited provider completes without 429s.

Examples:
  ETHEREUM_PROVIDER=https://node.example.com rpcthrottle scan
  rpcthrottle --config ./rpcthrottle.yaml scan --blocks 10`,
	RunE: runScan,
}

var scanBlocks uint64

func init() {
	scanCmd.Flags().Uint64Var(&scanBlocks, "blocks", 0, "number of recent blocks to fetch (overrides scan.blocks)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	v := config.NewViper(cfgFile)
	if scanBlocks > 0 {
		v.Set("scan.blocks", scanBlocks)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cmd.ErrOrStderr(), cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	if cfg.Metrics.Addr != "" {
		srv := metrics.New(reg, metrics.WithHost(cfg.Metrics.Addr), metrics.WithLogger(log))

		mctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Run(mctx); err != nil {
				log.Error("metrics", "error", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	client, err := newClient(cfg, reg, log)
	if err != nil {
		return err
	}

	return scan(ctx, client, cfg.Scan.Blocks, cmd.OutOrStdout())
}

// newClient assembles the call pipeline: tracing and logging outermost,
// then the throttle, then retries closest to the transport.
func newClient(cfg *config.Config, reg prometheus.Registerer, log *slog.Logger) (*rpcthrottle.Client, error) {
	var jitter *throttle.Jitter
	if cfg.Throttle.Jitter > 0 {
		j := throttle.JitterUpTo(cfg.Throttle.Jitter)
		jitter = &j
	}

	throttled, err := throttle.NewLayer(cfg.Throttle.RPS, jitter,
		throttle.WithLogger(log),
		throttle.WithMetrics(throttle.NewMetrics(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring throttle: %w", err)
	}

	b := rpcthrottle.NewBuilder().
		Layer(middleware.Trace(nil)).
		Layer(middleware.Logger(log)).
		Layer(middleware.Panics()).
		Layer(throttled)

	if cfg.Retry.MaxRetries > 0 {
		retried, err := retry.NewLayer(cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff,
			retry.WithMaxBackoff(cfg.Retry.MaxBackoff),
			retry.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("configuring retry: %w", err)
		}
		b.Layer(retried)
	}

	client, err := b.HTTP(cfg.Provider.URL,
		transport.WithTimeout(cfg.Provider.Timeout),
		transport.WithUserAgent(cfg.Provider.UserAgent),
		transport.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring client: %w", err)
	}

	return client, nil
}

type block struct {
	Number       string            `json:"number"`
	Transactions []json.RawMessage `json:"transactions"`
}

func scan(ctx context.Context, client *rpcthrottle.Client, blocks uint64, out io.Writer) error {
	var hexHead string
	if err := client.Call(ctx, "eth_blockNumber", nil, &hexHead); err != nil {
		return fmt.Errorf("fetching block number: %w", err)
	}

	head, err := parseQuantity(hexHead)
	if err != nil {
		return fmt.Errorf("parsing block number %q: %w", hexHead, err)
	}

	first := uint64(0)
	if head+1 > blocks {
		first = head + 1 - blocks
	}

	for n := first; n <= head; n++ {
		var b *block
		if err := client.Call(ctx, "eth_getBlockByNumber", []any{"0x" + strconv.FormatUint(n, 16), false}, &b); err != nil {
			return fmt.Errorf("fetching block %d: %w", n, err)
		}

		if b == nil {
			continue
		}

		fmt.Fprintf(out, "Block %d tx count: %d\n", n, len(b.Transactions))
	}

	return nil
}

func parseQuantity(s string) (uint64, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return 0, errors.New("missing 0x prefix")
	}

	return strconv.ParseUint(digits, 16, 64)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
