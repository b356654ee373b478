// Command migrate aplica las migraciones goose embebidas sobre la base configurada.
//
//	migrate [up|down|status|version|redo|reset]
package main

import (
	"database/sql"
	"flag"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jhoicas/depot-stock-api/migrations"
	"github.com/jhoicas/depot-stock-api/pkg/config"
	"github.com/jhoicas/depot-stock-api/pkg/logger"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Env: "development"}).Fatal().Err(err).Msg("cargar configuración")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	db, err := sql.Open("pgx", cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("goose: abrir conexión")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("goose: cerrar conexión")
		}
	}()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("goose: dialecto")
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command, args := arguments[0], arguments[1:]

	if err := goose.Run(command, db, ".", args...); err != nil {
		log.Error().Err(err).Str("command", command).Msg("goose falló")
		os.Exit(1)
	}
	log.Info().Str("command", command).Msg("goose ok")
}
