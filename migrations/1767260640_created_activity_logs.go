package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("activity_logs")

		collection.Fields.Add(
			&core.TextField{
				Name:     "actor",
				Required: true,
			},
			&core.TextField{
				Name:     "action",
				Required: true,
			},
			&core.TextField{
				Name:     "entity_type",
				Required: true,
			},
			&core.TextField{Name: "entity_id"},
			&core.JSONField{
				Name:    "details",
				MaxSize: 2000,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_activity_logs_action", false, "action", "")
		collection.AddIndex("idx_activity_logs_entity", false, "entity_type, entity_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("activity_logs")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
