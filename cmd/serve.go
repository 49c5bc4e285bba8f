package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/server"
	"github.com/desertthunder/prisync/internal/tasks"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the webhook listener until interrupted.
//
// On shutdown the server stops accepting requests, then waits for background deliveries to finish.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	policy, err := r.policy(cmd)
	if err != nil {
		return err
	}

	host, port := r.config.Server.Host, r.config.Server.Port
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}
	async := r.config.Server.Async && !cmd.Bool("sync")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, recorder, err := r.openAudit(ctx)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	handler, webhook := r.newRouter(policy, recorder, async)
	srv := server.NewHTTPServer(net.JoinHostPort(host, strconv.Itoa(port)), handler)

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening for webhooks", "addr", srv.Addr, "policy", policy, "async", async, "audit", db != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("graceful shutdown failed", "error", err)
	}
	webhook.Wait()

	r.logger.Info("server stopped")
	return nil
}

// newRouter wires the webhook and health handlers behind the logging middleware.
func (r *Runner) newRouter(policy models.Policy, recorder tasks.Recorder, async bool) (http.Handler, *server.WebhookHandler) {
	webhook := server.NewWebhookHandler(server.WebhookOpts{
		Dispatcher: r.newSyncer(policy, recorder),
		Logger:     r.logger,
		Secret:     r.config.Webhook.Secret,
		Async:      async,
	})

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(webhook)
	router.Handler(server.NewHealthHandler())

	return router, webhook
}
