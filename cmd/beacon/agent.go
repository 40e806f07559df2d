// ABOUTME: Shared wiring for commands that run the reporting loop
// ABOUTME: Builds the service and runs it alongside the optional HTTP endpoint

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harper/beacon/internal/controller"
	"github.com/harper/beacon/internal/location"
	"github.com/harper/beacon/internal/metrics"
	"github.com/harper/beacon/internal/reporter"
	"github.com/harper/beacon/internal/viewer"
	"golang.org/x/sync/errgroup"
)

func openProvider(source string) (location.Provider, error) {
	if source == "" {
		source = cfg.GetSource()
	}
	return location.Open(source)
}

func newController(provider location.Provider) *controller.Controller {
	return controller.New(controller.Config{
		IDs:      newGenerator(),
		Store:    store,
		Prefs:    prefsStore,
		Provider: provider,
		Logger:   logger,
	})
}

func newService(provider location.Provider) *reporter.Service {
	req := location.DefaultRequest()
	req.Interval = cfg.GetInterval()

	return reporter.New(reporter.Config{
		Store:        store,
		Prefs:        prefsStore,
		Provider:     provider,
		Notifier:     reporter.NewStatusNotifier(prefsStore, logger, os.Getpid()),
		Logger:       logger,
		Metrics:      appMetrics,
		Request:      req,
		StaleAfter:   cfg.GetStaleAfter(),
		WriteTimeout: cfg.GetWriteTimeout(),
	})
}

// runAgent reports under id until ctx ends. When httpAddr is set the viewer
// and /metrics are served alongside; either side failing stops both.
func runAgent(ctx context.Context, svc *reporter.Service, id, httpAddr string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(ctx, id)
	})
	if httpAddr != "" {
		g.Go(func() error {
			return viewer.ListenAndServe(ctx, httpAddr, viewer.New(store, logger, metrics.Handler()), logger)
		})
	}
	return g.Wait()
}

// sourceHint explains how to make the location source usable.
func sourceHint(err error) error {
	switch {
	case errors.Is(err, location.ErrPermission):
		return fmt.Errorf("%w\nhint: grant read access to the device, e.g. add your user to the dialout group", err)
	case errors.Is(err, location.ErrDisabled):
		return fmt.Errorf("%w\nhint: connect a GPS receiver, point --source at it, or use --source static:<lat>,<lng>", err)
	default:
		return err
	}
}
