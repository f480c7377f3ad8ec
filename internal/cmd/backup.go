package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teddyful/teddy-upgrader/internal/backup"
	"github.com/teddyful/teddy-upgrader/internal/config"
)

func (a *app) newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage installation backups",
		Long: `Backup manages the snapshots taken before each upgrade.

Every upgrade copies the whole installation into a timestamped directory
under the backup directory (./working/backups by default). To roll back an upgrade,
copy the contents of a backup over the installation.`,
	}

	cmd.AddCommand(a.newBackupListCmd())
	cmd.AddCommand(a.newBackupShowCmd())
	cmd.AddCommand(a.newBackupDeleteCmd())
	cmd.AddCommand(a.newBackupPruneCmd())

	return cmd
}

func (a *app) newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Long:  `List displays all backups with their creation time, Teddy version and size.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackupList()
		},
	}
}

func (a *app) newBackupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a backup",
		Long:  `Show prints the details of one backup. Use 'latest' for the most recent backup.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackupShow(args[0])
		},
	}
}

func (a *app) newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Long:  `Delete removes a backup by its ID. Use 'latest' for the most recent backup.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackupDelete(args[0])
		},
	}
}

func (a *app) newBackupPruneCmd() *cobra.Command {
	var policy backup.PrunePolicy

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: fmt.Sprintf(`Prune deletes old backups, keeping only the most recent N backups.

By default, keeps the %d most recent backups. With --older-than, backups
beyond that count are only removed once they reach the given age.`, backup.DefaultKeepCount),
		Example: `  teddy-upgrader backup prune --keep 3
  teddy-upgrader backup prune --keep 0 --older-than 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackupPrune(policy)
		},
	}

	cmd.Flags().IntVar(&policy.Keep, "keep", backup.DefaultKeepCount, "Number of backups to keep")
	cmd.Flags().DurationVar(&policy.OlderThan, "older-than", 0, "Only remove backups older than this, e.g. 720h")

	return cmd
}

func (a *app) backupManager() (*backup.Manager, error) {
	cfg, _, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	dir, err := config.ResolveDir(cfg.Dirs.Backup)
	if err != nil {
		return nil, err
	}
	return backup.NewManager(dir, cfg.Instance.ExcludeFromBackup), nil
}

func (a *app) runBackupList() error {
	manager, err := a.backupManager()
	if err != nil {
		return err
	}
	w, err := a.outputWriter()
	if err != nil {
		return err
	}

	backups, err := manager.List()
	if err != nil {
		return err
	}

	if !w.IsText() {
		return w.Write(backups)
	}

	if len(backups) == 0 {
		_, _ = fmt.Fprintf(a.stdout, "No backups found in %s\n", manager.BackupDir())
		return nil
	}

	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		version := b.Version
		if version == "" {
			version = "-"
		}
		rows = append(rows, []string{
			b.ID,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			version,
			humanize.Bytes(uint64(b.Size)),
		})
	}
	return w.Table([]string{"id", "created", "version", "size"}, rows)
}

func (a *app) runBackupShow(id string) error {
	manager, err := a.backupManager()
	if err != nil {
		return err
	}
	w, err := a.outputWriter()
	if err != nil {
		return err
	}

	info, err := manager.Get(id)
	if err != nil {
		return err
	}

	if !w.IsText() {
		return w.Write(info)
	}

	_, _ = fmt.Fprintf(a.stdout, "ID:      %s\n", info.ID)
	_, _ = fmt.Fprintf(a.stdout, "Path:    %s\n", info.Path)
	_, _ = fmt.Fprintf(a.stdout, "Created: %s (%s)\n", info.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(info.CreatedAt))
	if info.Version != "" {
		_, _ = fmt.Fprintf(a.stdout, "Version: %s\n", info.Version)
	}
	_, _ = fmt.Fprintf(a.stdout, "Size:    %s\n", humanize.Bytes(uint64(info.Size)))
	return nil
}

func (a *app) runBackupDelete(id string) error {
	manager, err := a.backupManager()
	if err != nil {
		return err
	}

	info, err := manager.Get(id)
	if err != nil {
		return err
	}
	if err := manager.Delete(info.ID); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.stdout, "Deleted backup %s\n", info.ID)
	return nil
}

func (a *app) runBackupPrune(policy backup.PrunePolicy) error {
	manager, err := a.backupManager()
	if err != nil {
		return err
	}
	w, err := a.outputWriter()
	if err != nil {
		return err
	}

	result, err := manager.Prune(policy)
	if err != nil {
		return err
	}

	if !w.IsText() {
		return w.Write(result)
	}

	if len(result.Deleted) == 0 {
		_, _ = fmt.Fprintf(a.stdout, "Nothing to prune (%d backup(s) kept)\n", result.Kept)
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "Pruned %d backup(s), freeing %s and keeping %d:\n",
		len(result.Deleted), humanize.Bytes(uint64(result.FreedBytes)), result.Kept)
	versions := result.Versions()
	for i, b := range result.Deleted {
		_, _ = fmt.Fprintf(a.stdout, "  - %s (Teddy %s)\n", b.ID, versions[i])
	}
	return nil
}
