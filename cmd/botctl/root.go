package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"search-chatter/internal/bootstrap"
	"search-chatter/internal/config"
	"search-chatter/internal/store"
)

// app carries the store opened for the running command.
type app struct {
	envFile string
	store   store.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "botctl",
		Short:        "Offline administration of the search-chatter store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env", ".env", "Env file to load before reading configuration.")

	cmd.AddCommand(newChannelsCmd(a))
	cmd.AddCommand(newUsersCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	return cmd
}

func (a *app) open(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.NewStore()
	if err != nil {
		return err
	}
	st, err := bootstrap.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}
