package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("tables")

		collection.Fields.Add(
			&core.TextField{
				Name:     "label",
				Required: true,
			},
			&core.NumberField{
				Name:     "capacity",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(2.0),
				Max:      types.Pointer(6.0),
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"available", "occupied", "reserved"},
			},
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

		collection.AddIndex("idx_tables_label", true, "label", "")
		collection.AddIndex("idx_tables_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tables")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
