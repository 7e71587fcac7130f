package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/ai"
	"github.com/ukydev/carmemo/internal/config"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/zoobzio/clockz"
	"go.mongodb.org/mongo-driver/mongo"
)

// app holds the connections shared by the commands.
type app struct {
	cfg       *config.Config
	client    *mongo.Client
	database  *mongo.Database
	baselines maintenance.BaselineStore
	gemini    *ai.Gemini
	closers   []func(context.Context) error
}

// openApp connects what the config asks for. Mongo is dialed when needMongo
// is set or when baselines live there.
func openApp(ctx context.Context, cfg *config.Config, needMongo bool) (*app, error) {
	a := &app{cfg: cfg}

	if needMongo || cfg.Baseline.Store == config.StoreMongo {
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		a.client = client
		a.database = client.Database(cfg.Mongo.Database)
		a.closers = append(a.closers, client.Disconnect)
		log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")
	}

	store, err := a.openBaselines()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.baselines = store

	if cfg.Gemini.APIKey != "" {
		g, err := ai.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.gemini = g
		log.WithField("model", g.Model()).Info("Gemini enabled")
	} else {
		log.Warn("GEMINI_API_KEY not set; baseline generation, VIN fallback and receipt scanning are disabled")
	}
	return a, nil
}

func (a *app) openBaselines() (maintenance.BaselineStore, error) {
	switch a.cfg.Baseline.Store {
	case config.StoreMongo:
		return db.NewMongoBaselineStore(a.database.Collection(db.BaselinesCollection)), nil
	case config.StoreFile:
		return db.NewFileBaselineStore(a.cfg.Baseline.FilePath), nil
	case config.StoreSQLite:
		store, err := db.OpenSQLiteBaselineStore(a.cfg.Baseline.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown baseline store %q", a.cfg.Baseline.Store)
	}
}

// generator returns nil when Gemini is not configured, keeping the interface nil.
func (a *app) generator() maintenance.Generator {
	if a.gemini == nil {
		return nil
	}
	return a.gemini
}

func (a *app) resolver() *maintenance.ScheduleResolver {
	return maintenance.NewScheduleResolver(a.baselines, a.generator())
}

func (a *app) planner(resolver *maintenance.ScheduleResolver, mapper *maintenance.CategoryMapper, clock clockz.Clock) *maintenance.Planner {
	engine := maintenance.NewForecastEngine(mapper, clock).WithHorizon(a.cfg.Forecast.Horizon)
	return maintenance.NewPlanner(resolver, engine)
}

// Close releases connections in reverse order of opening.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.WithError(err).Warn("Close failed")
		}
	}
	a.closers = nil
}
