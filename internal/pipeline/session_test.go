package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/lib/browser"
)

// fakeSession serves fixed documents per url and runs scripted hooks when
// an element is clicked. Clicking anything without a hook fails with
// browser.ErrNotFound.
type fakeSession struct {
	pages     map[string]string
	current   string
	modalOpen bool
	closed    bool

	onClick     map[string]func() error
	navigations []string
	clicks      []browser.Selector
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:   map[string]string{},
		onClick: map[string]func() error{},
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return browser.ErrSessionClosed
	}
	s.navigations = append(s.navigations, url)
	s.current = url
	s.modalOpen = false
	return nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	if s.closed {
		return "", browser.ErrSessionClosed
	}
	doc, ok := s.pages[s.current]
	if !ok {
		doc = "<html><head></head><body><p>nothing here</p></body></html>"
	}
	if s.modalOpen {
		doc = strings.Replace(doc, "</body>", `<div id="modal"><label><input type="checkbox" value="consent"/></label></div></body>`, 1)
	}
	return doc, nil
}

func (s *fakeSession) Click(ctx context.Context, sel browser.Selector) error {
	if s.closed {
		return browser.ErrSessionClosed
	}
	s.clicks = append(s.clicks, sel)
	hook, ok := s.onClick[sel.Value]
	if !ok {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, sel)
	}
	return hook()
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) clickValues() []string {
	var values []string
	for _, sel := range s.clicks {
		values = append(values, sel.Value)
	}
	return values
}

// listingContainer renders one catalog entry, an empty href omits the
// detail link's href attribute.
func listingContainer(href string, links ...string) string {
	anchor := `<a class="page-blue-title cursor-pointer">Untitled</a>`
	if href != "" {
		anchor = fmt.Sprintf(`<a class="page-blue-title cursor-pointer" href="%s">Dataset</a>`, href)
	}
	var linkMarkup strings.Builder
	for _, text := range links {
		fmt.Fprintf(&linkMarkup, `<a href="#">%s</a>`, text)
	}
	return fmt.Sprintf(
		`<div class="list d-flex flex-column">%s<div class="links">%s</div></div>`,
		anchor,
		linkMarkup.String(),
	)
}

func catalogDocument(containers ...string) string {
	return "<html><head></head><body>" + strings.Join(containers, "") + "</body></html>"
}

// exportXPath is the locator of the second link of the i-th (0 based)
// container rendered by catalogDocument.
func exportXPath(i int) string {
	return fmt.Sprintf("/html[1]/body[1]/div[%d]/div[1]/a[2]", i+1)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CatalogURL = "https://portal.test/eng/spheres/abc"
	cfg.DownloadDir = "downloads"
	cfg.ConsentValue = "consent"
	return cfg
}

func testClock() *chrono.FakeImpl {
	return chrono.NewFakeImpl(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))
}
