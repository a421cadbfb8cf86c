package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("notifications")

		collection.Fields.Add(
			&core.TextField{
				Name:     "user_id",
				Required: true,
			},
			&core.TextField{Name: "queue_entry_id"},
			&core.SelectField{
				Name:      "type",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"table_ready", "seated", "cancelled", "position_update", "general"},
			},
			&core.TextField{
				Name:     "title",
				Required: true,
			},
			&core.TextField{Name: "message"},
			&core.BoolField{Name: "read"},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_notifications_user", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("notifications")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
