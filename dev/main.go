package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fabriq-content/internal/history"
	"fabriq-content/lib/configutil"
)

const stateDir = "dev/.state"

const localConfig = `{
  // written by the dev setup, not checked in
  history_db: "dev/.state/history.db",
  dump_http: "dev/.state/http",
}
`

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll(stateDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(stateDir, 0755)
	if err != nil {
		return err
	}

	db, err := history.Open(filepath.Join(stateDir, "history.db"))
	if err != nil {
		return fmt.Errorf("create history db: %w", err)
	}
	db.Close()

	local := configutil.LocalPath("pipeline.json5")
	_, err = os.Stat(local)
	if os.IsNotExist(err) || recreate {
		err = os.WriteFile(local, []byte(localConfig), 0644)
		if err != nil {
			return err
		}
		slog.Info("wrote local config", "path", local)
	}
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
