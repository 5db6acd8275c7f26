package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/cubage"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/offline"
)

func newSyncCmd(offlineMode *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued offline mutations against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.coordinator.TrySyncQueue(cmd.Context()); err != nil {
				return fmt.Errorf("queue not fully drained: %w", err)
			}
			fmt.Println("queue drained")
			return nil
		},
	}
}

func newChantiersCmd(offlineMode *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chantiers",
		Short: "List logging sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			sites, err := app.coordinator.ListChantiers(cmd.Context())
			if err != nil {
				return err
			}
			for _, ch := range sites {
				fmt.Printf("%s  %s  (%d qualités)\n", ch.ID, ch.Reference, len(ch.QualityGroups))
			}
			if len(sites) == 0 {
				fmt.Println("no chantiers cached")
			}
			return nil
		},
	}
	return cmd
}

func newSaisiesCmd(offlineMode *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saisies",
		Short: "Work with measurement rows",
	}

	list := &cobra.Command{
		Use:   "list <chantier-id> <qualite-id>",
		Short: "List rows of one scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			rows, err := app.coordinator.ListSaisies(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, row := range rows {
				status := "synced"
				if !row.Synced {
					status = "pending"
				}
				volume := "-"
				if row.VolumeNet != nil {
					volume = strconv.FormatFloat(*row.VolumeNet, 'f', 3, 64)
				}
				fmt.Printf("#%d  %s  L=%.2fm D=%.1fcm V=%s  [%s]\n",
					row.Numero, row.ID, row.Longueur, row.Diametre, volume, status)
			}
			return nil
		},
	}

	var annotation string
	add := &cobra.Command{
		Use:   "add <chantier-id> <qualite-id> <longueur-m> <diametre-cm>",
		Short: "Record a new measurement row",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			longueur, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("bad longueur %q: %w", args[2], err)
			}
			diametre, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("bad diametre %q: %w", args[3], err)
			}
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			row, err := app.coordinator.CreateSaisie(cmd.Context(), offline.CreateInput{
				ChantierID: args[0],
				QualiteID:  args[1],
				Longueur:   longueur,
				Diametre:   diametre,
				Annotation: annotation,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created #%d (%s)\n", row.Numero, row.ID)
			return nil
		},
	}
	add.Flags().StringVar(&annotation, "annotation", "", "free-text note (max 500 chars)")

	rm := &cobra.Command{
		Use:   "rm <chantier-id> <qualite-id> <saisie-id>",
		Short: "Delete a measurement row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.coordinator.DeleteSaisie(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}

func newStatsCmd(offlineMode *bool) *cobra.Command {
	var scierie string
	cmd := &cobra.Command{
		Use:   "stats <chantier-id> <qualite-id>",
		Short: "Show aggregated volumes for one scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			stats, err := app.coordinator.GetStats(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			agg := stats.Cubage
			if policy := cubage.PolicyFor(scierie); policy != nil {
				agg = policy.Apply(agg)
			}
			printColumn := func(name string, c cubage.ColumnStats) {
				fmt.Printf("%-10s sum=%.3f  count=%d  avg=%.3f\n", name, c.Sum, c.Count, c.Avg)
			}
			printColumn("< V1", agg.BelowV1)
			printColumn("V1..V2", agg.BetweenV)
			printColumn(">= V2", agg.AboveV2)
			printColumn("total", agg.Total)
			fmt.Printf("source: %s", stats.Source)
			if stats.PendingRows > 0 {
				fmt.Printf("  (%d rows awaiting server volumes)", stats.PendingRows)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&scierie, "scierie", "", "apply the sawyer's redistribution policy if one exists")
	return cmd
}

func newSnapshotCmd(offlineMode *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Export the local cache to a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*offlineMode)
			if err != nil {
				return err
			}
			defer app.close()
			version, err := app.store.Snapshot(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("snapshot written to %s (version %d)\n", args[0], version)
			return nil
		},
	}
}
