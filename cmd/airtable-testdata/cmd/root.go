// cmd/airtable-testdata/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"airtable"
	"airtable/credentials"
	"airtable/fields"
	"airtable/internal/utils/logger"
	"airtable/transport"
)

var (
	baseID    string
	tableName string
	env       string
	apiKeyVar string
	rps       float64

	log  *slog.Logger
	actx *airtable.CachingContext
	tbl  *airtable.Table
)

var rootCmd = &cobra.Command{
	Use:   "airtable-testdata",
	Short: "Подготовка тестовых данных в таблице Airtable",
	Long: `Утилита наполняет тестовую таблицу синтетическими записями
и очищает её. Все запросы идут через общий ограничитель частоты,
так что утилиту безопасно запускать против рабочей базы.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	// .env необязателен: без него настройки берутся из окружения.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("загрузка .env: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("AIRTABLE_ENV", logger.EnvLocal)

	if env == "" {
		env = viper.GetString("AIRTABLE_ENV")
	}
	if baseID == "" {
		baseID = viper.GetString("AIRTABLE_TEST_BASE_ID")
	}
	if tableName == "" {
		tableName = viper.GetString("AIRTABLE_TEST_TABLE_ID")
	}
	if baseID == "" || tableName == "" {
		return fmt.Errorf("не заданы база и таблица: используйте --base/--table или переменные AIRTABLE_TEST_BASE_ID/AIRTABLE_TEST_TABLE_ID")
	}

	log = logger.New(env)

	// Ключ: переменная окружения, затем файл секретов.
	var resolver credentials.Resolver
	if os.Getenv(apiKeyVar) != "" {
		resolver = credentials.FromEnv(apiKeyVar)
	} else {
		resolver = credentials.SecretsFile()
	}

	tr := transport.New(resolver.APIKey, log, transport.WithRequestsPerSecond(rps))
	actx = airtable.NewCachingContext(tr, log)
	airtable.SetDefault(actx)

	tbl = airtable.NewTable(baseID, tableName,
		airtable.Field{Name: "name", Column: "Name", Type: fields.String{}},
		airtable.Field{Name: "age", Column: "Age", Type: fields.Integer{}},
		airtable.Field{Name: "notes", Column: "Notes", Type: fields.String{}},
	)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseID, "base", "", "идентификатор базы")
	rootCmd.PersistentFlags().StringVar(&tableName, "table", "", "имя таблицы")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "окружение (local/dev/prod)")
	rootCmd.PersistentFlags().StringVar(&apiKeyVar, "api-key-env", "AIRTABLE_API_KEY", "переменная окружения с API-ключом")
	rootCmd.PersistentFlags().Float64Var(&rps, "rps", 5, "клиентский предел запросов в секунду")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(wipeCmd)
}
