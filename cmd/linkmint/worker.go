package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/linkmint/linkmint/internal/admin"
	"github.com/linkmint/linkmint/internal/config"
	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/internal/jobs"
	"github.com/linkmint/linkmint/internal/notify"
	"github.com/linkmint/linkmint/internal/orchestrator"
	"github.com/linkmint/linkmint/internal/repository"
	"github.com/linkmint/linkmint/internal/service"
	"github.com/linkmint/linkmint/internal/tasks"
	"github.com/linkmint/linkmint/internal/worker"
	"github.com/linkmint/linkmint/pkg/db"
	"github.com/linkmint/linkmint/pkg/health"
	"github.com/linkmint/linkmint/pkg/logger"
	"github.com/linkmint/linkmint/pkg/mailer"
	"github.com/linkmint/linkmint/pkg/mailer/resend"
	"github.com/linkmint/linkmint/pkg/queue"
	"github.com/linkmint/linkmint/pkg/redis"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the job worker and the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewWithSentry(cfg.Sentry)

			pool, err := db.Connect(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			redisClient, err := redis.Open(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			repo := repository.New(pool)

			renderer := mailer.NewRenderer(notify.TemplatesFS())
			notifier := notify.New(mailer.New(resend.New(cfg.Resend), renderer, cfg.Mailer), log)

			generator := content.NewHTTPGenerator(cfg.Generator)
			publisher := content.NewHTTPPublisher(cfg.Publisher)

			manager, err := queue.NewManager(pool,
				queue.WithQueue(jobs.QueueGeneration, 1),
				queue.WithQueue(jobs.QueueIntegration, 1),
				queue.WithQueue(jobs.QueuePublishing, 1),
				queue.WithQueue(jobs.QueueMaintenance, 1),
				queue.WithTask(tasks.NewGenerateArticle(repo, generator, notifier, log)),
				queue.WithTask(tasks.NewIntegrateBacklink(repo, generator, notifier, log)),
				queue.WithTask(tasks.NewPublishVersion(repo, publisher, notifier, log, cfg.PlacementTerm)),
				queue.WithScheduledTask(tasks.NewExpirePlacements(repo, publisher, notifier, log), jobs.QueueMaintenance),
				queue.WithObserver(queue.NewLogObserver(log)),
				queue.WithObserver(orchestrator.NewProjectionObserver(repo, log)),
				queue.WithLogger(log),
			)
			if err != nil {
				return err
			}

			orch := orchestrator.New(manager, repo, log)
			runtime := worker.NewRuntime(manager, worker.NewReconciler(repo, manager, orch, log), log)

			svc := service.New(
				repo,
				service.RepositoryTxRunner(pool, repo),
				orch,
				service.NewRedisGuard(redisClient, "payment"),
				publisher,
				notifier,
				log,
				service.Options{PlacementTerm: cfg.PlacementTerm},
			)

			adminSrv := admin.New(cfg.Admin, svc, health.Checks{
				"postgres": db.Healthcheck(pool),
				"redis":    redis.Healthcheck(redisClient),
				"queue":    queue.Healthcheck(manager),
			}, log)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return runtime.Run(ctx) })
			g.Go(func() error { return adminSrv.Run(ctx) })

			log.Info("worker started", "env", cfg.AppEnv)
			return g.Wait()
		},
	}
}
