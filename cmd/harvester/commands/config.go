package commands

import (
	"os"
	"time"
	devenv "uzdata-harvester/dev/env"
	"uzdata-harvester/internal/notify"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/configutil"
	"uzdata-harvester/lib/portal"
)

// TimeoutsConfig holds durations in seconds, zero keeps the default.
type TimeoutsConfig struct {
	Page         float64 `json:"page"`
	PagePoll     float64 `json:"page_poll"`
	PageSettle   float64 `json:"page_settle"`
	Lookup       float64 `json:"lookup"`
	Modal        float64 `json:"modal"`
	ModalSettle  float64 `json:"modal_settle"`
	Settle       float64 `json:"settle"`
	Download     float64 `json:"download"`
	DownloadPoll float64 `json:"download_poll"`
	Pacing       float64 `json:"pacing"`
}

type BrowserConfig struct {
	Headless  bool   `json:"headless"`
	UserAgent string `json:"user_agent"`
	ExecPath  string `json:"exec_path"`
}

type Config struct {
	CatalogURL string `json:"catalog_url"`
	// SphereID builds the catalog url from the portal url when CatalogURL
	// is empty.
	SphereID  string `json:"sphere_id"`
	PortalURL string `json:"portal_url"`
	Language  string `json:"language"`

	DownloadDir         string   `json:"download_dir"`
	Pages               int      `json:"pages"`
	ExpectedItems       int      `json:"expected_items"`
	PageSize            int      `json:"page_size"`
	StopAfterEmptyPages int      `json:"stop_after_empty_pages"`
	ConsentValue        string   `json:"consent_value"`
	InProgressSuffixes  []string `json:"in_progress_suffixes"`

	Timeouts TimeoutsConfig     `json:"timeouts"`
	Browser  BrowserConfig      `json:"browser"`
	Ledger   string             `json:"ledger"`
	Schedule string             `json:"schedule"`
	Email    notify.EmailConfig `json:"email"`
}

const defaultLedgerPath = "harvester.db"

// readConfig reads path (and its local override), a missing file means
// every setting keeps its default.
func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}

func seconds(value float64, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value * float64(time.Second))
}

func (c Config) LedgerPath() string {
	if c.Ledger == "" {
		return defaultLedgerPath
	}
	return c.Ledger
}

// Pipeline converts the file config into a pipeline.Config, anything left
// unset keeps the value from pipeline.DefaultConfig.
func (c Config) Pipeline() pipeline.Config {
	out := pipeline.DefaultConfig()

	switch {
	case c.CatalogURL != "":
		out.CatalogURL = c.CatalogURL
	case c.SphereID != "":
		portalURL := c.PortalURL
		if portalURL == "" {
			portalURL = portal.DefaultBaseURL
		}
		language := c.Language
		if language == "" {
			language = "eng"
		}
		out.CatalogURL = portal.Sphere{ID: c.SphereID}.CatalogURL(portalURL, language)
	}

	if c.DownloadDir != "" {
		out.DownloadDir = c.DownloadDir
	}
	if c.Pages > 0 {
		out.Pages = c.Pages
	}
	if c.ExpectedItems > 0 {
		out.ExpectedItems = c.ExpectedItems
	}
	if c.PageSize > 0 {
		out.PageSize = c.PageSize
	}
	if c.StopAfterEmptyPages > 0 {
		out.StopAfterEmptyPages = c.StopAfterEmptyPages
	}
	if c.ConsentValue != "" {
		out.ConsentValue = c.ConsentValue
	}
	if len(c.InProgressSuffixes) > 0 {
		out.InProgressSuffixes = c.InProgressSuffixes
	}

	t := c.Timeouts
	out.PageTimeout = seconds(t.Page, out.PageTimeout)
	out.PagePollInterval = seconds(t.PagePoll, out.PagePollInterval)
	out.PageSettleDelay = seconds(t.PageSettle, out.PageSettleDelay)
	out.LookupTimeout = seconds(t.Lookup, out.LookupTimeout)
	out.ModalTimeout = seconds(t.Modal, out.ModalTimeout)
	out.ModalSettleDelay = seconds(t.ModalSettle, out.ModalSettleDelay)
	out.SettleDelay = seconds(t.Settle, out.SettleDelay)
	out.DownloadTimeout = seconds(t.Download, out.DownloadTimeout)
	out.PollInterval = seconds(t.DownloadPoll, out.PollInterval)
	out.PacingInterval = seconds(t.Pacing, out.PacingInterval)

	return out
}

// ResolvedPipeline is Pipeline with a `<dev_state>` download dir expanded.
func (c Config) ResolvedPipeline() (pipeline.Config, error) {
	out := c.Pipeline()
	dir, err := devenv.ResolvePath(out.DownloadDir)
	if err != nil {
		return pipeline.Config{}, err
	}
	out.DownloadDir = dir
	return out, nil
}
