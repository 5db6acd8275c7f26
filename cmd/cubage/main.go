// Command cubage is the field-entry companion: it keeps a local cache of
// chantiers and saisies, works against the remote API when reachable, and
// queues mutations for replay when it is not.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/offline"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/session"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

type appContext struct {
	logger      *zap.Logger
	store       *store.BadgerStore
	coordinator *offline.Coordinator
}

func loadConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cubage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/cubage")
	}
	viper.SetEnvPrefix("CUBAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("cache.dir", ".cubage-cache")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("user.num_start", 1)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil // env/defaults only
		}
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func openApp(offlineMode bool) (*appContext, error) {
	logger, err := newLogger(viper.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	st, err := store.NewBadgerStore(viper.GetString("cache.dir"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	gateway := api.NewClient(viper.GetString("api.base_url"), viper.GetString("api.token"), logger)
	conn := offline.NewFlag(!offlineMode)
	sess := &session.Static{User: &session.User{
		ID:        viper.GetString("user.id"),
		FirstName: viper.GetString("user.first_name"),
		LastName:  viper.GetString("user.last_name"),
		NumStart:  viper.GetInt("user.num_start"),
	}}

	coordinator, err := offline.New(st, gateway, conn, sess, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appContext{logger: logger, store: st, coordinator: coordinator}, nil
}

func (a *appContext) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("cache close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func main() {
	var cfgFile string
	var offlineMode bool

	root := &cobra.Command{
		Use:           "cubage",
		Short:         "Offline-first field entry for logging-site measurements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default cubage.yaml)")
	root.PersistentFlags().BoolVar(&offlineMode, "offline", false, "treat connectivity as unavailable")

	root.AddCommand(
		newSyncCmd(&offlineMode),
		newChantiersCmd(&offlineMode),
		newSaisiesCmd(&offlineMode),
		newStatsCmd(&offlineMode),
		newSnapshotCmd(&offlineMode),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
