package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dhcgn/attachment-archiver/archive"
	"github.com/dhcgn/attachment-archiver/config"
	"github.com/dhcgn/attachment-archiver/progress"
	"github.com/dhcgn/attachment-archiver/runner"
	"github.com/dhcgn/attachment-archiver/stats"
)

// NewRootCommand builds the attachment-archiver command tree.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "attachment-archiver [ids...]",
		Short: "Bundle attachments from a sharded store into a timestamped zip archive",
		Long: `Maps every attachment id to its file in the sharded store
(XX/XX/XX/XXXXXXXX.stream, from the id's 8-digit hex form) and writes all of
them into <filetime>.zip in the archive folder. Nothing is written unless
every file exists.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, level, cleanup, err := setupLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			logger = logger.With("run", uuid.NewString())
			slog.SetDefault(logger)
			logger.Info("starting attachment-archiver", "attachments", cfg.AttachmentsDir, "archiveDir", cfg.ArchiveDir)

			text, err := readIDText(cmd, cfg, args)
			if err != nil {
				return fmt.Errorf("read ids: %w", err)
			}

			outcome, err := run(cfg, logger, level, text)
			if err != nil {
				return err
			}
			if !outcome.OK() {
				return errors.New(outcome.Message())
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message())
			return nil
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		return nil, fmt.Errorf("register flags: %w", err)
	}

	rootCmd.AddCommand(newPathCommand(), newResolveCommand())
	return rootCmd, nil
}

func run(cfg config.Config, logger *slog.Logger, level *slog.LevelVar, text string) (archive.Outcome, error) {
	r, err := runner.New(cfg, logger)
	if err != nil {
		return archive.Outcome{}, fmt.Errorf("runner.New: %w", err)
	}

	reporter := stats.NewReporter(logger)
	r.Subscribe(reporter)
	r.Subscribe(progress.New(cfg.LogLevel, level))

	res, err := r.Run(text)
	reporter.Report()
	return archive.Classify(res, err), nil
}

// Execute runs the root command with the process arguments.
func Execute(out io.Writer) error {
	rootCmd, err := NewRootCommand()
	if err != nil {
		return err
	}
	rootCmd.SetOut(out)
	return rootCmd.Execute()
}
