package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scrumboard/internal/board"
	"scrumboard/internal/config"
	"scrumboard/internal/server"
	"scrumboard/internal/storage/sqlite"
)

var rootCmd = &cobra.Command{
	Use:          "scrumboard",
	Short:        "Scrum board service",
	Long:         "scrumboard serves project boards, sprints and issues over a JSON API backed by SQLite.",
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default .scrumboard.yaml)")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("db", "data/scrumboard.db", "Path to sqlite database file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("sprint-policy", "preserve", "sprint selection on reload (preserve, reresolve)")

	_ = viper.BindPFlag("addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("db_path", flags.Lookup("db"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("sprint_policy", flags.Lookup("sprint-policy"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".scrumboard")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SCRUMBOARD")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	policy, _ := cfg.Policy()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("scrumboard starting",
		slog.String("db", cfg.DBPath),
		slog.String("sprint_policy", policy.String()))

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	registry := board.NewRegistry(store, board.Options{
		Logger: logger,
		Policy: policy,
	})

	gin.SetMode(cfg.GinMode)
	srv := server.New(store, registry, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
