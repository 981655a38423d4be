package main

import (
	"fmt"
	"os"

	"github.com/resonant-live/resonant/backend/internal/reconcile"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/resonant-live/resonant/backend/pkg/config"
	"github.com/resonant-live/resonant/backend/pkg/logger"
	"github.com/resonant-live/resonant/backend/pkg/mailer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sendEmails bool

func main() {
	root := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair drift between friendships and their notifications",
		Long: `reconcile audits the friendship and notification tables and repairs
any inconsistency it finds. Every pass is idempotent: re-running against
a consistent store reports zero mutations.`,
	}
	root.PersistentFlags().BoolVar(&sendEmails, "send-emails", false,
		"deliver email copies for notifications created during reconciliation")

	root.AddCommand(
		passCommand("orphan-friendships", "Delete pending friendships whose profiles are gone",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.PurgeOrphanFriendships() }),
		passCommand("stale-rejections", "Delete rejected friendships past their retention window",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.PurgeStaleRejections() }),
		passCommand("orphan-notifications", "Delete friend_request notifications without a pending friendship",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.PurgeOrphanNotifications() }),
		passCommand("backfill-payloads", "Patch friend_request payloads missing the target profile id",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.BackfillNotificationPayloads() }),
		passCommand("sync-notifications", "Create friend_request notifications for unnotified pending friendships",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.SyncFriendshipNotifications() }),
		passCommand("all", "Run every reconciliation pass in dependency order",
			func(r *reconcile.Runner) (reconcile.Report, error) { return r.RunAll() }),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func passCommand(name, short string, run func(*reconcile.Runner) (reconcile.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			zlog, err := logger.New(cfg.Env)
			if err != nil {
				return err
			}
			defer zlog.Sync()

			db, err := config.InitDB(cfg)
			if err != nil {
				return fmt.Errorf("initialize databases: %w", err)
			}
			defer db.CloseDB()

			runner := buildRunner(cfg, db, zlog)
			report, err := run(runner)
			if err != nil {
				zlog.Error("reconciliation failed", zap.String("pass", name), zap.Error(err))
				return err
			}
			zlog.Info("reconciliation finished",
				zap.String("pass", name),
				zap.Int("scanned", report.Scanned),
				zap.Int("deleted", report.Deleted),
				zap.Int("created", report.Created),
				zap.Int("patched", report.Patched))
			return nil
		},
	}
}

// buildRunner wires a Runner against the live store. Socket delivery is a
// no-op here; reconciliation runs out of band and connected clients pick up
// repairs on their next fetch. Email copies are off unless --send-emails.
func buildRunner(cfg *config.Config, db *config.DB, zlog *zap.Logger) *reconcile.Runner {
	var emailNotifier mailer.EmailNotifier = mailer.NopNotifier{}
	if sendEmails {
		emailNotifier = mailer.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, zlog)
	}

	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(db.Postgres)
	profileRepo := repositories.NewPostgresProfileRepository(db.Postgres)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	settingRepo := repositories.NewPostgresNotificationSettingRepository(db.Postgres)

	notificationService := services.NewNotificationService(
		notificationRepo, friendshipRepo, userRepo, settingRepo,
		emailNotifier, services.NopBroadcaster{}, zlog, cfg.ProfileRestoreWindow)

	return reconcile.NewRunner(notificationRepo, friendshipRepo, profileRepo,
		notificationService, zlog, cfg.RejectedFriendshipTTL)
}
