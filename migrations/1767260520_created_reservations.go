package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("reservations")

		collection.Fields.Add(
			&core.TextField{
				Name:     "queue_entry_id",
				Required: true,
			},
			&core.TextField{
				Name:     "table_id",
				Required: true,
			},
			&core.TextField{
				Name:     "customer_id",
				Required: true,
			},
			&core.TextField{Name: "staff_id"},
			&core.NumberField{
				Name:     "party_size",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.DateField{
				Name:     "seated_at",
				Required: true,
			},
			// empty while the reservation is open
			&core.DateField{Name: "completed_at"},
			&core.NumberField{
				Name:    "duration_minutes",
				OnlyInt: true,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_reservations_table", false, "table_id", "")
		collection.AddIndex("idx_reservations_entry", false, "queue_entry_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("reservations")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
