// Package browser is the automation capability the pipeline drives: it can
// load a URL, hand back the rendered document and click elements in it.
//
// Element lookup and attribute reads happen on the rendered HTML (see
// Session.HTML), only activation needs the live browser.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by a Session that can no longer be used,
// callers treat it as fatal for the whole run.
var ErrSessionClosed = errors.New("browser session closed")

// ErrNotFound is returned by Click when no element matches the selector.
var ErrNotFound = errors.New("element not found")

type By int

const (
	ByCSS By = iota
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("By(%d)", int(b))
	}
}

type Selector struct {
	By    By
	Value string
}

func CSS(value string) Selector {
	return Selector{By: ByCSS, Value: value}
}

func XPath(value string) Selector {
	return Selector{By: ByXPath, Value: value}
}

func (s Selector) String() string {
	return fmt.Sprintf("%s(%s)", s.By, s.Value)
}

// Session is a single browser tab with downloads routed to a known directory.
//
// Implementations must respect ctx deadlines for every call, Click in
// particular is expected to wait for the element until ctx is done.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// HTML returns the serialized, currently rendered document.
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, sel Selector) error
	Close() error
}
