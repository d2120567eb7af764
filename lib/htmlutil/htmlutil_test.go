package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><head></head><body>
<div class="row"><a>first</a></div>
<div class="row">
	<span>x</span>
	<a>second</a>
	<a id="target">  json
	</a>
</div>
</body></html>`

func TestXPath(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	require.NoError(t, err)

	target := doc.Find("#target").Nodes[0]
	require.Equal(t, "/html[1]/body[1]/div[2]/a[2]", XPath(target))

	first := doc.Find("div.row a").Nodes[0]
	require.Equal(t, "/html[1]/body[1]/div[1]/a[1]", XPath(first))

	require.Equal(t, "", XPath(nil))
}

func TestNormalizeText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	require.NoError(t, err)

	require.Equal(t, "json", NormalizeText(GetText(doc.Find("#target").Nodes[0])))
	require.Equal(t, "a b c", NormalizeText("\ta \n\n b  c "))
	require.Equal(t, "", NormalizeText(" \n "))
}
