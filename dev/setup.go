package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "uzdata-harvester/dev/env"
	ledgerdb "uzdata-harvester/internal/ledger/db"
	"uzdata-harvester/internal/pipeline"
)

func createDb(filename, schema string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

func CreateLedger() error {
	return createDb("ledger.db", ledgerdb.Schema)
}

func writeSample(filename, contents string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("config already exists at", path)
		return nil
	}
	fmt.Println("writing sample config to", path)
	return os.WriteFile(path, []byte(contents), 0644)
}

func CreateSampleConfigs(catalogURL string, pages int) error {
	cfg := pipeline.DefaultConfig()
	if catalogURL != "" {
		cfg.CatalogURL = catalogURL
	}
	err := writeSample("browser.json5", fmt.Sprintf(`{
    // used by the live browser test in lib/browser
    catalog_url: %q,
    consent_value: %q,
    headless: true,
    page: 1,
}
`, cfg.CatalogURL, cfg.ConsentValue))
	if err != nil {
		return err
	}
	return writeSample("harvester.json5", fmt.Sprintf(`{
    catalog_url: %q,
    download_dir: "<dev_state>/downloads",
    ledger: "<dev_state>/ledger.db",
    pages: %d,
    browser: { headless: true },
}
`, cfg.CatalogURL, pages))
}

func PrintConfigLocations() {
	slog.Info("the live browser test reads dev/.state/browser.json5, run `harvester crawl --config dev/.state/harvester.json5` to crawl into dev/.state.")
}
