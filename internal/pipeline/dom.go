package pipeline

import (
	"context"
	"strings"
	"uzdata-harvester/internal/components/chrono"
	"uzdata-harvester/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// presence returns a probe that is done once the rendered document contains
// an element matching the css selector.
func presence(session browser.Session, css string) chrono.Probe[*goquery.Document] {
	return func(ctx context.Context) (*goquery.Document, bool, error) {
		markup, err := session.HTML(ctx)
		if err != nil {
			return nil, false, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			return nil, false, err
		}
		if doc.Find(css).Length() == 0 {
			return nil, false, nil
		}
		return doc, true, nil
	}
}
