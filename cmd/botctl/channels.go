package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"search-chatter/internal/admin"
	"search-chatter/internal/store"
)

func newChannelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage mandatory channels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mandatory channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			channels, err := a.store.ListChannels(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(channels) == 0 {
				fmt.Fprintln(out, "no channels")
				return nil
			}
			for i, ch := range channels {
				fmt.Fprintf(out, "%d. %s\t%d\t%s\n", i+1, ch.ButtonText, ch.ChatID, ch.Link)
			}
			return nil
		},
	})
	add := &cobra.Command{
		Use:   "add <link> <chat_id> <button text...>",
		Short: "Add a mandatory channel",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join([]string{args[0], args[1], strings.Join(args[2:], " ")}, "\n")
			ch, err := admin.ParseChannel(text)
			if err != nil {
				return err
			}
			if err := a.store.AddChannel(cmd.Context(), ch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%d)\n", ch.ButtonText, ch.ChatID)
			return nil
		},
	}
	// chat ids are negative and must not be parsed as flags
	add.Flags().SetInterspersed(false)
	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <n>",
		Short: "Remove the channel at 1-based position n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("position must be a number: %w", err)
			}
			ch, err := a.store.RemoveChannelAt(cmd.Context(), pos)
			if errors.Is(err, store.ErrChannelIndex) {
				return fmt.Errorf("no channel at position %d", pos)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", ch.ButtonText)
			return nil
		},
	})
	return cmd
}
