package cmd

import (
	"fmt"
	"math/rand"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"airtable"
)

var (
	seedCount   int
	seedWorkers int
)

var firstNames = []string{
	"Alice", "Bruno", "Carmen", "Dmitri", "Elena", "Farid", "Grace", "Hiro",
	"Irina", "Jonas", "Katya", "Leon", "Marta", "Nadia", "Oskar", "Paula",
}

var lastNames = []string{
	"Trevino", "Bass", "Conley", "Serrano", "Murphy", "Ivanov", "Keller",
	"Sato", "Moreau", "Silva", "Novak", "Haddad",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Наполнить таблицу синтетическими записями",
	Long: `Создаёт записи с именами и возрастами через пул воркеров.
Сохранения идут параллельно, но транспорт выдерживает общий
минимальный интервал между запросами.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(seedWorkers)

		records := make([]*airtable.Record, seedCount)
		for i := 0; i < seedCount; i++ {
			rec := airtable.NewRecord(tbl)
			name := firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
			if err := rec.Set("name", name); err != nil {
				return err
			}
			if err := rec.Set("age", 18+rand.Intn(60)); err != nil {
				return err
			}
			if err := rec.Set("notes", fmt.Sprintf("seed #%d", i+1)); err != nil {
				return err
			}
			records[i] = rec

			g.Go(func() error {
				return rec.Save(ctx)
			})
		}

		if err := g.Wait(); err != nil {
			return fmt.Errorf("создание записей: %w", err)
		}

		color.Green("Создано записей: %d", seedCount)
		for _, rec := range records {
			log.Debug("запись создана", "id", rec.ID(), "name", rec.String("name"))
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 20, "сколько записей создать")
	seedCmd.Flags().IntVar(&seedWorkers, "workers", 10, "размер пула воркеров")
}
