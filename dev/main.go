package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

type options struct {
	recreate   bool
	catalogURL string
	pages      int
}

func create(opts options) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if opts.recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll("dev/.state/downloads", 0777)
	if err != nil && !os.IsExist(err) {
		return err
	}

	err = CreateLedger()
	if err != nil {
		return err
	}
	err = CreateSampleConfigs(opts.catalogURL, opts.pages)
	if err != nil {
		return err
	}
	PrintConfigLocations()

	return nil
}

func main() {
	var opts options
	flag.BoolVar(&opts.recreate, "recreate", false, "recreate the dev environment from scratch")
	flag.StringVar(&opts.catalogURL, "catalog", "", "catalog url written into the sample configs, defaults to the built-in sphere")
	flag.IntVar(&opts.pages, "pages", 2, "page bound written into the sample crawl config")
	flag.Parse()

	err := create(opts)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created", "state", "dev/.state")
}
