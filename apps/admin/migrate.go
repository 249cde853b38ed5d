package main

import (
	"github.com/pressly/goose/v3"

	"github.com/copalsoft/copalschool/storage/database/migrations"
)

var gooseRunFunc = goose.Run // mockable

// migrate runs the given goose command (up, down, status, version, ...)
// against the embedded migration files.
func (cli *commandLine) migrate(args []string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, ".", arguments...)
}
