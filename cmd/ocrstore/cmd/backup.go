package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/backup"
)

var backupPrefix string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back the store up to S3",
	Long: `Copy every document body and the metadata index to the configured
bucket, under --prefix (default: backup.prefix, else backups/<timestamp>).

Examples:
  ocrstore backup
  ocrstore backup --prefix backups/before-cleanup
  ocrstore backup restore backups/before-cleanup --store ./restored`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore [prefix]",
	Short: "Restore a backup into an empty store directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(restoreCmd)

	backupCmd.Flags().StringVar(&backupPrefix, "prefix", "", "S3 prefix to write the backup to")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	client, err := newStorageClient()
	if err != nil {
		return err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return err
	}

	prefix := backupPrefix
	if prefix == "" {
		prefix = cfg.Backup.Prefix
	}
	if prefix == "" {
		prefix = backup.DefaultPrefix(time.Now())
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := backup.Backup(ctx, st, client, prefix, slog.Default())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d documents to s3://%s/%s\n", result.Documents, client.Bucket(), result.Prefix)
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped: %v\n", e)
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	client, err := newStorageClient()
	if err != nil {
		return err
	}

	result, err := backup.Restore(ctx, client, args[0], cfg.Store.Dir, slog.Default())
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d documents into %s\n", result.Documents, cfg.Store.Dir)
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped: %v\n", e)
	}
	return nil
}
