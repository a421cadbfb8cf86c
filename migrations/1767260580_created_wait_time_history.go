package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("wait_time_history")

		collection.Fields.Add(
			&core.TextField{
				Name:     "queue_entry_id",
				Required: true,
			},
			&core.NumberField{
				Name:    "predicted_wait_time",
				OnlyInt: true,
			},
			&core.NumberField{
				Name:    "queue_length",
				OnlyInt: true,
			},
			&core.NumberField{
				Name:    "available_tables",
				OnlyInt: true,
			},
			&core.NumberField{
				Name:    "hour_of_day",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
				Max:     types.Pointer(23.0),
			},
			&core.NumberField{
				Name:    "day_of_week",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
				Max:     types.Pointer(6.0),
			},
			// -1 until the entry is seated; the single late fill-in per sample
			&core.NumberField{
				Name:    "actual_wait_time",
				OnlyInt: true,
				Min:     types.Pointer(-1.0),
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_wait_time_history_entry", false, "queue_entry_id", "")
		collection.AddIndex("idx_wait_time_history_actual", false, "actual_wait_time", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("wait_time_history")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
