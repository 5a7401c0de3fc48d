package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	patcher "github.com/printbeast/rngp-patcher"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show what a sync would change without touching the install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd, patcher.WithForce(mustBool(cmd, "force")))
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Check(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSummary(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().Bool("force", false, "Plan every manifest file for download")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Remove deprecated files and download everything that differs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			retries, _ := cmd.Flags().GetInt("verify-retries")

			opts := []patchtypes.Option{
				patcher.WithConcurrency(concurrency),
				patcher.WithVerifyRetries(retries),
				patcher.WithForce(mustBool(cmd, "force")),
			}
			if !a.v.GetBool("json") {
				opts = append(opts, patcher.WithProgress(progressPrinter(cmd.ErrOrStderr())))
			}

			client, err := a.newClient(cmd, opts...)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			var summary *patchtypes.Summary
			if mustBool(cmd, "dry-run") {
				summary, err = client.Check(cmd.Context())
			} else {
				summary, err = client.Sync(cmd.Context())
			}
			if summary != nil {
				if perr := a.printSummary(cmd.OutOrStdout(), summary); perr != nil && err == nil {
					err = perr
				}
			}
			if err != nil {
				return err
			}
			if summary.Outcome != nil && len(summary.Outcome.FilesFailed) > 0 {
				return fmt.Errorf("%d file(s) failed to sync", len(summary.Outcome.FilesFailed))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntP("concurrency", "j", 1, "Parallel downloads (1-8)")
	flags.Int("verify-retries", 0, "Re-downloads after a digest mismatch")
	flags.Bool("force", false, "Download every manifest file")
	flags.Bool("dry-run", false, "Plan only")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the manifest and the first listed file can be fetched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			report, err := client.VerifyConnection(cmd.Context())
			if report != nil {
				if perr := a.printReport(cmd.OutOrStdout(), report); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}

func newUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <install-dir>",
		Short: "Remember the install directory in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := fs.GetAbs(args[0])
			if err != nil {
				return err
			}
			if !fs.IsDir(dir) {
				return fmt.Errorf("%s is not a directory", dir)
			}

			path := a.configPath()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}

			// Only the install dir is persisted, never flag values.
			out := viper.New()
			out.Set(keyInstallDir, dir)
			if err := out.WriteConfigAs(path); err != nil {
				return fmt.Errorf("write config %s: %w", path, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "install dir set to %s\n", dir)
			return err
		},
	}
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
