package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zeu5/langlearn-rl/store"
)

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "langlearn",
		Short:        "Train, compare and watch agents learning Kinyarwanda",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd.Flags()); err != nil {
				return err
			}
			setupLogging()
			return flags.Record()
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		TrainCommand(),
		EvaluateCommand(),
		PlotCommand(),
		SimulateCommand(),
	)

	return cmd
}

// loadConfig layers defaults, environment, config file and command line flags.
func loadConfig(fset *pflag.FlagSet) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := flags.ApplyEnv(nil); err != nil {
		return err
	}
	if configFile != "" {
		if err := flags.LoadFile(configFile); err != nil {
			return err
		}
	}
	UpdateFlags(fset)
	return nil
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(flags.LogLevel)
	if err != nil {
		log.WithField("level", flags.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	if flags.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// signalContext is cancelled on interrupt or when done is called.
func signalContext() (context.Context, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os

	doneCh := make(chan struct{}) // channel for done signal from application

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
			log.Info("interrupted")
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}

func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.NewStore(flags.Store, flags.StorePath)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		closeStore(s)
		return nil, err
	}
	return s, nil
}

func closeStore(s store.Store) {
	if err := store.CloseIfSupported(s); err != nil {
		log.WithError(err).Warn("could not close the policy store")
	}
}
