package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"airtable"
)

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Удалить все записи из таблицы",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeYes {
			return fmt.Errorf("удаление всех записей таблицы %q требует флага --yes", tableName)
		}

		ctx := cmd.Context()
		deleted := 0

		// Сервер принимает не больше одной записи на запрос удаления,
		// поэтому записи удаляются по одной.
		cur := tbl.Query().Run(ctx)
		var records []*airtable.Record
		for cur.Next() {
			records = append(records, cur.Record())
		}
		if err := cur.Err(); err != nil {
			return fmt.Errorf("чтение таблицы: %w", err)
		}

		for _, rec := range records {
			if err := rec.Delete(ctx); err != nil {
				return fmt.Errorf("удаление %s: %w", rec.ID(), err)
			}
			deleted++
		}

		color.Yellow("Удалено записей: %d", deleted)
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "подтвердить удаление")
}
