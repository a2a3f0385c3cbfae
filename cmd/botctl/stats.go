package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"search-chatter/internal/analytics"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect known users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of known users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), len(users))
			return nil
		},
	})
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the activity snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users, err := a.store.ListUsers(ctx)
			if err != nil {
				return err
			}
			activity, err := a.store.Activity(ctx)
			if err != nil {
				return err
			}
			blocked, err := a.store.Blocked(ctx)
			if err != nil {
				return err
			}
			channels, err := a.store.ListChannels(ctx)
			if err != nil {
				return err
			}
			// dialogs live in the bot process memory
			snap := analytics.Compute(users, activity, blocked, len(channels), 0, time.Now())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprint(out, analytics.Report(snap, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON.")
	return cmd
}
