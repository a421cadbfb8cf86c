package cmd

import (
	"log"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"
)

// defaultTablePool is the fixed small-venue layout: eight tables across the
// three capacity tiers, matching the admission ceiling of eight parties.
var defaultTablePool = []struct {
	Label    string
	Capacity int
}{
	{"T1", 2},
	{"T2", 2},
	{"T3", 2},
	{"T4", 4},
	{"T5", 4},
	{"T6", 4},
	{"T7", 6},
	{"T8", 6},
}

func seedCmd(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the physical table pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Bootstrap(); err != nil {
				return err
			}
			return seedTables(app)
		},
	}
}

func seedTables(app core.App) error {
	collection, err := app.FindCollectionByNameOrId("tables")
	if err != nil {
		return err
	}

	created := 0
	for _, t := range defaultTablePool {
		count, err := app.CountRecords("tables", dbx.HashExp{"label": t.Label})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		record := core.NewRecord(collection)
		record.Set("label", t.Label)
		record.Set("capacity", t.Capacity)
		record.Set("status", "available")
		if err := app.Save(record); err != nil {
			return err
		}
		created++
	}

	log.Printf("Seeded %d tables (%d already present)", created, len(defaultTablePool)-created)
	return nil
}
