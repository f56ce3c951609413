package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/auth"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored parties, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			parties, err := b.Parties.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list parties: %w", err)
			}
			out.VerboseLog("found %d parties", len(parties))
			return out.Emit(parties, func(w io.Writer) {
				if len(parties) == 0 {
					fmt.Fprintln(w, "No parties found.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tHOST\tSTATE\tPLAYERS\tUPDATED")
				for _, s := range parties {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.HostName, s.State, s.Players, formatMillis(s.LastUpdated))
				}
				tw.Flush()
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <party-id>",
		Short: "Show one party, wrapped gifts included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.Parties.Get(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("party %s: %w", args[0], err)
			}
			if err != nil {
				return fmt.Errorf("get party: %w", err)
			}
			return out.Emit(p, func(w io.Writer) { printParty(w, p) })
		},
	}
}

func printParty(w io.Writer, p *engine.Party) {
	fmt.Fprintf(w, "Party %s hosted by %s\n", p.ID, p.HostName)
	fmt.Fprintf(w, "State: %s  Final round: %s  Max steals: %d  Updated: %s\n",
		p.State, p.FinalRoundType, p.MaxSteals, formatMillis(p.LastUpdated))
	if cur := p.CurrentPlayer(); cur != nil {
		fmt.Fprintf(w, "Current turn: %s\n", cur.Name)
	}
	fmt.Fprintln(w, "Players:")
	for _, pl := range p.Players {
		holding := "-"
		if g := p.Gift(pl.CurrentGift); g != nil {
			holding = g.Name
		}
		fmt.Fprintf(w, "  %s  %-20s holding %s\n", pl.ID, pl.Name, holding)
	}
	fmt.Fprintln(w, "Gifts:")
	for _, g := range p.Gifts {
		status := "wrapped"
		if g.Opened {
			status = fmt.Sprintf("opened, stolen %d", p.StealCount[g.ID])
		}
		fmt.Fprintf(w, "  %s  %-20s from %s (%s)\n", g.ID, g.Name, g.BroughtByName, status)
	}
	fmt.Fprintf(w, "Actions: %d\n", len(p.Actions))
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <party-id>",
		Short: "Delete one party and its action feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := b.Parties.Get(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("party %s: %w", args[0], err)
			}
			if err := b.Parties.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete party: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted party %s\n", args[0])
			return nil
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored party",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			parties, err := b.Parties.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list parties: %w", err)
			}
			if len(parties) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No parties to delete.")
				return nil
			}
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %d parties? Type \"yes\" to confirm: ", len(parties))
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					return errors.New("aborted")
				}
			}
			for _, s := range parties {
				if err := b.Parties.Delete(cmd.Context(), s.ID); err != nil {
					return fmt.Errorf("delete party %s: %w", s.ID, err)
				}
				out.VerboseLog("deleted %s", s.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d parties\n", len(parties))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "feed <party-id>",
		Short: "Print the published action feed of a party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.Feed == nil {
				return setupErrorf("no action feed configured")
			}

			entries, err := b.Feed.Read(cmd.Context(), args[0], from)
			if err != nil {
				return fmt.Errorf("read feed: %w", err)
			}
			return out.Emit(entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%4d  %s\n", e.ActionIndex, e.Action)
				}
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first action index to print")
	return cmd
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <party-id>",
		Short: "Show archived results of a finished party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			b, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.Results == nil {
				return setupErrorf("DATABASE_URL is not set")
			}

			results, err := b.Results.Results(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}
			return out.Emit(results, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PLAYER\tGIFT\tBROUGHT BY")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.PlayerName, r.GiftName, r.BroughtBy)
				}
				tw.Flush()
			})
		},
	}
}

// NewHashKeyCommand creates the hash-admin-key command. It needs no backend.
func NewHashKeyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-key <key>",
		Short: "Print the ADMIN_KEY_HASH value for key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashAdminKey(args[0])
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
