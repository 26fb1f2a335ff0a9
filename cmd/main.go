package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"snapshop/catalog"
	"snapshop/config"
	"snapshop/controllers"
	"snapshop/database"
	"snapshop/notify"
	"snapshop/routes"
	"snapshop/session"
	"snapshop/storefront"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Config error: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := connectStore(ctx, cfg)
	if err != nil {
		log.Fatal("❌ Database connection error: ", err)
	}

	products, err := openCatalog(cfg)
	if err != nil {
		log.Fatal("❌ Catalog error: ", err)
	}

	feed := database.NewFeed(store)
	tokens := session.NewTokens(cfg.JWTSecret, cfg.SessionTTL)

	g, gctx := errgroup.WithContext(ctx)
	registry := storefront.NewRegistry(gctx, clientFactory(cfg, feed, tokens), cfg.SessionIdle)

	r := gin.Default()
	r.SetTrustedProxies(nil)
	routes.RegisterRoutes(r, controllers.NewController(registry, products), registry, routes.Options{
		AllowOrigins:   cfg.AllowOrigins,
		SessionTimeout: 2 * cfg.DBTimeout,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	g.Go(func() error {
		return feed.Run(gctx)
	})
	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("🚀 Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := store.Close(closeCtx); cerr != nil {
		log.Println("⚠️ Closing database:", cerr)
	}

	if err != nil {
		log.Fatal("❌ Server error: ", err)
	}
	log.Println("👋 Server exited")
}

func connectStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case config.DriverMongo:
		return database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.DBName, cfg.Mongo.Collection)
	case config.DriverFirestore:
		return database.ConnectFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile, cfg.Firestore.Collection)
	case config.DriverPostgres:
		return database.ConnectPostgres(ctx, cfg.DatabaseURL)
	default:
		log.Println("⚠️ Using in-memory storage, data is lost on restart")
		return database.NewMemoryStore(), nil
	}
}

func openCatalog(cfg *config.Config) (catalog.Source, error) {
	switch {
	case cfg.CatalogURL != "":
		return catalog.NewClient(catalog.Config{URL: cfg.CatalogURL, Token: cfg.CatalogToken}), nil
	case cfg.CatalogFile != "":
		return catalog.LoadFile(cfg.CatalogFile)
	default:
		return catalog.Seed()
	}
}

func clientFactory(cfg *config.Config, store database.Store, tokens *session.Tokens) storefront.Factory {
	return func(sessionID string, n notify.Notifier) (*storefront.Client, error) {
		var storage session.Storage = session.NewMemoryStorage()
		if cfg.SessionDir != "" {
			fs, err := session.NewFileStorage(cfg.SessionDir, sessionID)
			if err != nil {
				return nil, err
			}
			storage = fs
		}

		opts := []storefront.Option{
			storefront.WithStorage(storage),
			storefront.WithNotifier(n),
			storefront.WithTokens(tokens),
			storefront.WithTimeout(cfg.DBTimeout),
		}
		if !cfg.HashPasswords {
			opts = append(opts, storefront.WithPlainPasswords())
		}
		return storefront.NewClient(store, opts...), nil
	}
}
