package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ayusman/airpoint/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newSessionsCmd(opts *options) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(opts.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			recs, err := st.Sessions().List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			return writeSessions(cmd, recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of sessions to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(opts.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.Sessions().Delete(args[0]); err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func writeSessions(cmd *cobra.Command, recs []*store.SessionRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tFRAMES\tHAND\tCLICKS\tSCROLLS\tVOLUME\tERRORS\tMEAN MS")
	for _, r := range recs {
		duration := "running"
		if r.EndedAt != nil {
			duration = r.EndedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), duration,
			r.Frames, r.HandFrames, r.Presses, r.Scrolls, r.VolumeChanges, r.Errors, r.MeanFrameMs)
	}
	return w.Flush()
}
