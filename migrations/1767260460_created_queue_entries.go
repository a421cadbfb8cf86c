package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("queue_entries")

		collection.Fields.Add(
			&core.TextField{
				Name:     "customer_id",
				Required: true,
			},
			&core.NumberField{
				Name:     "party_size",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"waiting", "notified", "seated", "cancelled", "no_show"},
			},
			&core.TextField{
				Name:     "token",
				Required: true,
			},
			// meaningful only while the entry is active; stale afterwards
			&core.NumberField{
				Name:    "position",
				OnlyInt: true,
			},
			&core.NumberField{
				Name:    "estimated_wait_time",
				OnlyInt: true,
			},
			&core.DateField{
				Name:     "joined_at",
				Required: true,
			},
			&core.DateField{Name: "notified_at"},
			&core.DateField{Name: "seated_at"},
			&core.DateField{Name: "cancelled_at"},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_queue_entries_token", true, "token", "")
		collection.AddIndex("idx_queue_entries_status", false, "status", "")
		collection.AddIndex("idx_queue_entries_customer", false, "customer_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("queue_entries")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
