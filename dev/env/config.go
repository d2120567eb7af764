package devenv

// BrowserTestConfig is read from dev/.state/browser.json5, tests that drive a
// real browser against the portal are skipped when it is missing.
type BrowserTestConfig struct {
	CatalogUrl   string `json:"catalog_url"`
	ConsentValue string `json:"consent_value"`
	Headless     bool   `json:"headless"`
	// the page to read, defaults to 1
	Page int `json:"page"`
}
