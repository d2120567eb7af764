package pipeline

import (
	"fmt"
	"time"

	"uzdata-harvester/lib/browser"
)

const DefaultCatalogURL = "https://data.egov.uz/eng/spheres/607ff4227b6428eee08802c0"

// Config sizes and paces a crawl. It is passed explicitly to every
// component constructor.
type Config struct {
	CatalogURL  string
	DownloadDir string

	// Pages is the last page number to request, when zero the bound is
	// derived from ExpectedItems and PageSize.
	Pages         int
	ExpectedItems int
	PageSize      int
	// StopAfterEmptyPages stops the crawl after this many consecutive pages
	// without entries, zero disables the check.
	StopAfterEmptyPages int

	// ConsentValue is the value of the checkbox input that has to be ticked
	// in the download modal.
	ConsentValue       string
	ContainerSelector  string
	DetailLinkSelector string
	LinksSelector      string
	ExportLinkText     string
	ModalSelector      string
	ConfirmValue       string
	// InProgressSuffixes are file name suffixes of downloads that have not
	// finished yet, the watcher never reports them.
	InProgressSuffixes []string

	PageTimeout      time.Duration
	PagePollInterval time.Duration
	PageSettleDelay  time.Duration
	LookupTimeout    time.Duration
	ModalTimeout     time.Duration
	ModalSettleDelay time.Duration
	SettleDelay      time.Duration
	DownloadTimeout  time.Duration
	PollInterval     time.Duration
	PacingInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		CatalogURL:    DefaultCatalogURL,
		DownloadDir:   "downloads",
		ExpectedItems: 1030,
		PageSize:      10,

		ConsentValue:       "60ae4b8bd47a196d52f26634",
		ContainerSelector:  "div.list.d-flex.flex-column",
		DetailLinkSelector: "a.page-blue-title.cursor-pointer",
		LinksSelector:      ".links",
		ExportLinkText:     "json",
		ModalSelector:      "#modal",
		ConfirmValue:       "Download dataset",
		InProgressSuffixes: []string{".crdownload", ".tmp", ".part"},

		PageTimeout:      20 * time.Second,
		PagePollInterval: 500 * time.Millisecond,
		PageSettleDelay:  2 * time.Second,
		LookupTimeout:    10 * time.Second,
		ModalTimeout:     20 * time.Second,
		ModalSettleDelay: 3 * time.Second,
		SettleDelay:      2 * time.Second,
		DownloadTimeout:  30 * time.Second,
		PollInterval:     500 * time.Millisecond,
		PacingInterval:   4 * time.Second,
	}
}

// PageBound is the last page number the crawl requests.
func (c Config) PageBound() int {
	if c.Pages > 0 {
		return c.Pages
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if c.ExpectedItems <= 0 {
		return 0
	}
	return (c.ExpectedItems + pageSize - 1) / pageSize
}

func (c Config) PageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", c.CatalogURL, page)
}

func (c Config) ConsentSelector() browser.Selector {
	return browser.XPath(fmt.Sprintf("//label[.//input[@value='%s']]", c.ConsentValue))
}

func (c Config) ConfirmSelector() browser.Selector {
	return browser.XPath(fmt.Sprintf("//input[@value='%s']", c.ConfirmValue))
}

func (c Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog url is empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download dir is empty")
	}
	if c.PageBound() <= 0 {
		return fmt.Errorf("page bound is zero, set pages or expected items")
	}
	if c.ConsentValue == "" {
		return fmt.Errorf("consent value is empty")
	}
	return nil
}
