package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"SmartHealth/cache"
	"SmartHealth/config"
	"SmartHealth/database"
	"SmartHealth/models"
	"SmartHealth/notifications"
	"SmartHealth/repositories"
	"SmartHealth/routes"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "smarthealth",
		Short:        "Smart Health coordination service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(locationCmd())
	rootCmd.AddCommand(hospitalCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and configures the global logger.
func setup() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.IsDev() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.AppConfig) (*gorm.DB, func(), error) {
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}

func openCache(ctx context.Context, cfg *config.AppConfig) (*redis.Client, *cache.Cache, error) {
	client, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.NewCache(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, c, nil
}

func openMediaStore(ctx context.Context, cfg *config.AppConfig) (storage.MediaStore, error) {
	if cfg.MediaBackend == config.MediaS3 {
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
	}
	return storage.NewLocalStore(cfg.MediaDir)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	if err := database.RunMigrations(db); err != nil {
		return err
	}

	redisClient, appCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	media, err := openMediaStore(ctx, cfg)
	if err != nil {
		return err
	}
	notifier, closeNotifier, err := notifications.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	tokens, err := utils.NewTokenMaker(cfg.SymmetricKey, cfg.TokenTTL())
	if err != nil {
		return err
	}

	handler, drain := routes.SetupRoutes(routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Cache:    appCache,
		Locker:   database.NewRedisLocker(redisClient),
		Media:    media,
		Notifier: notifier,
		Tokens:   tokens,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				database.MonitorRedisPool(redisClient)
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		drain()
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}
	wg.Wait()
	drain()
	log.Info().Msg("server exited gracefully")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			db, closeDB, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := database.RunMigrations(db); err != nil {
				return err
			}
			fmt.Println("Migrations applied successfully.")
			return nil
		},
	}
}

// withLocations runs fn against the location repository, whose writes
// invalidate the cached dropdown data.
func withLocations(ctx context.Context, fn func(repositories.LocationRepository) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, closeDB, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	redisClient, appCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	return fn(repositories.NewLocationRepository(db, appCache))
}

func locationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage appointment locations",
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return errors.New("--name is required")
			}
			return withLocations(cmd.Context(), func(locations repositories.LocationRepository) error {
				location := &models.Location{Name: name}
				if err := locations.CreateLocation(cmd.Context(), location); err != nil {
					return err
				}
				fmt.Printf("Added location %d: %s\n", location.ID, location.Name)
				return nil
			})
		},
	}
	addCmd.Flags().String("name", "", "Location name")
	cmd.AddCommand(addCmd)
	return cmd
}

func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage hospitals",
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a hospital to a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			locationID, _ := cmd.Flags().GetUint("location")
			if name == "" || locationID == 0 {
				return errors.New("--name and --location are required")
			}
			return withLocations(cmd.Context(), func(locations repositories.LocationRepository) error {
				location, err := locations.GetLocation(cmd.Context(), locationID)
				if err != nil {
					return err
				}
				if location == nil {
					return errors.Errorf("location %d does not exist", locationID)
				}
				hospital := &models.Hospital{Name: name, LocationID: location.ID}
				if err := locations.CreateHospital(cmd.Context(), hospital); err != nil {
					return err
				}
				fmt.Printf("Added hospital %d: %s (%s)\n", hospital.ID, hospital.Name, location.Name)
				return nil
			})
		},
	}
	addCmd.Flags().String("name", "", "Hospital name")
	addCmd.Flags().Uint("location", 0, "Location id")
	cmd.AddCommand(addCmd)
	return cmd
}
