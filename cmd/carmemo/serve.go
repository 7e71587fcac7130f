package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/carmemo/internal/config"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/handlers"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/notify"
	"github.com/ukydev/carmemo/internal/recalls"
	"github.com/ukydev/carmemo/internal/server"
	"github.com/ukydev/carmemo/internal/vin"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !noSweep)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Disable the background reminder sweeper")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, sweep bool) error {
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	vehiclesColl := a.database.Collection(db.VehiclesCollection)
	if err := db.EnsureVehicleIndexes(ctx, vehiclesColl); err != nil {
		return err
	}
	subsColl := a.database.Collection(db.SubscriptionsCollection)
	if err := db.EnsureSubscriptionIndexes(ctx, subsColl); err != nil {
		return err
	}
	vehicles := &db.MongoCollection{Collection: vehiclesColl}
	subscriptions := db.NewMongoSubscriptionCollection(subsColl)

	clock := clockz.RealClock
	mapper := maintenance.NewCategoryMapper(cfg.RecordUnmappedCategories)
	defer mapper.Close()
	if cfg.RecordUnmappedCategories {
		taxonomy := db.NewMongoTaxonomyLog(a.database.Collection(db.UnmappedCategoryCollection))
		if err := mapper.OnUnmapped(func(ctx context.Context, u maintenance.UnmappedCategory) error {
			return taxonomy.RecordUnmapped(ctx, u.Raw, u.Normalized, u.ObservedAt)
		}); err != nil {
			return err
		}
	}

	resolver := a.resolver()
	planner := a.planner(resolver, mapper, clock)
	enricher := maintenance.NewTaskEnricher(mapper, clock)
	recallClient := recalls.NewClient(cfg.Recalls.BaseURL)

	var receipts handlers.ReceiptExtractor
	if a.gemini != nil {
		receipts = a.gemini
	}

	srv := server.New(server.Deps{
		Vehicles:        handlers.NewVehicleHandler(vehicles, enricher, planner, recallClient, clock),
		Lookup:          handlers.NewLookupHandler(vinDecoder(a), recallClient),
		Receipts:        handlers.NewReceiptHandler(receipts, mapper, cfg.HTTP.MaxUploadBytes),
		Categories:      handlers.NewCategoryHandler(mapper),
		Notifications:   handlers.NewNotificationHandler(subscriptions, cfg.Push.VAPIDPublicKey),
		Metrics:         resolver.Metrics(),
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimit:       cfg.HTTP.RateLimit,
		RateLimitWindow: time.Duration(cfg.HTTP.RateLimitWindow) * time.Second,
		Clock:           clock,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		window := time.Duration(cfg.HTTP.RateLimitWindow) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-clock.After(window):
				if n := srv.PruneRateLimits(); n > 0 {
					log.WithField("clients", n).Debug("Pruned rate limit buckets")
				}
			}
		}
	})

	if sweep {
		notifier, closeNotifier, err := buildNotifier(cfg, subscriptions)
		if err != nil {
			return err
		}
		defer closeNotifier()
		if notifier != nil {
			sweeper := notify.NewSweeper(vehicles, enricher, notifier, notify.SweeperConfig{
				Interval:    cfg.Sweep.Interval,
				Concurrency: cfg.Sweep.Concurrency,
				Planner:     planner,
				Clock:       clock,
			})
			g.Go(func() error { return sweeper.Run(ctx) })
		}
	}

	return g.Wait()
}

// vinDecoder chains API Ninjas ahead of Gemini. It returns nil when neither
// is configured.
func vinDecoder(a *app) vin.Decoder {
	var decoders []vin.Decoder
	if a.cfg.VIN.NinjasAPIKey != "" {
		decoders = append(decoders, vin.NewNinjasDecoder(a.cfg.VIN.NinjasAPIKey))
	}
	if a.gemini != nil {
		decoders = append(decoders, a.gemini)
	}
	if len(decoders) == 0 {
		return nil
	}
	return vin.NewChain(decoders...)
}

// buildNotifier combines the enabled channels. A nil notifier means none are.
func buildNotifier(cfg *config.Config, subscriptions notify.SubscriptionStore) (notify.Notifier, func(), error) {
	var channels notify.Multi
	closeFn := func() {}

	if cfg.PushEnabled() {
		push, err := notify.NewPushNotifier(subscriptions, notify.VAPIDConfig{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:    cfg.Push.Subject,
		})
		if err != nil {
			return nil, closeFn, err
		}
		channels = append(channels, push)
	}
	if cfg.MQTTEnabled() {
		client, err := notify.ConnectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { client.Disconnect(250) }
		channels = append(channels, notify.NewMQTTNotifier(client, cfg.MQTT.TopicPrefix))
		log.WithField("broker", cfg.MQTT.Broker).Info("MQTT reminders enabled")
	}
	if len(channels) == 0 {
		log.Info("No reminder channels configured; sweeper disabled")
		return nil, closeFn, nil
	}
	return channels, closeFn, nil
}
