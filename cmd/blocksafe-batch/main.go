package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/blocksafe/internal/batch"
	"github.com/MikeSquared-Agency/blocksafe/internal/bootstrap"
	"github.com/MikeSquared-Agency/blocksafe/internal/config"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/metrics"
)

var (
	statePath string
	mode      string
	batchSize int
	pause     time.Duration
	outPath   string
	persist   bool
)

var rootCmd = &cobra.Command{
	Use:   "blocksafe-batch <corpus.jsonl>",
	Short: "Replay a JSONL corpus of messages through the scam analysis pipeline",
	Long: `Each input line is a JSON object {"id", "message", "mode", "session_id",
"voice", "follow_ups"}. Progress is kept in a state file so an interrupted
run resumes where it stopped.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBatch,
}

func init() {
	rootCmd.Flags().StringVar(&statePath, "state", "", "State file path (default BATCH_STATE_PATH)")
	rootCmd.Flags().StringVar(&mode, "mode", "shield", "Mode for items without one (shield|honeypot)")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 25, "Items between state saves")
	rootCmd.Flags().DurationVar(&pause, "pause", 0, "Pause between batches")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "Append records as JSONL to this file (- for stdout)")
	rootCmd.Flags().BoolVar(&persist, "persist", false, "Save records to DATABASE_URL")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := config.LoadDotEnv(os.Getenv("BLOCKSAFE_ENV_FILE")); err != nil {
		return err
	}
	cfg := config.Load()
	logger := bootstrap.SetupLogging(cfg.LogLevel, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	defaultMode, err := decision.ParseMode(mode)
	if err != nil {
		return err
	}
	if statePath == "" {
		statePath = cfg.BatchStatePath
	}

	llm, closeLLM, err := bootstrap.BuildOracle(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLLM()

	sinks := bootstrap.Sinks{Sessions: bootstrap.BuildSessionLog(nil, cfg)}
	if persist {
		db, err := bootstrap.BuildStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("--persist requires DATABASE_URL")
		}
		defer db.Close()
		sinks.Store = db
	}

	var results io.Writer
	switch outPath {
	case "":
	case "-":
		results = os.Stdout
	default:
		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		results = f
	}

	pipe := bootstrap.BuildPipeline(cfg, llm, metrics.New(nil), sinks, logger)
	runner := batch.NewRunner(batch.Config{
		InputPath:   args[0],
		StatePath:   statePath,
		DefaultMode: defaultMode,
		BatchSize:   batchSize,
		Pause:       pause,
	}, pipe, results, logger)

	state, err := runner.Run(ctx)
	if state != nil {
		fmt.Fprint(os.Stderr, batch.FormatSummary(state))
	}
	return err
}
