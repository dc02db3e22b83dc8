package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finnews-scraper/internal/observability"
)

const financieroBase = "https://www.elfinancierocr.com"

const negociosPage = `<html><body>
<div class="card">
  <time>15 de enero de 2024</time>
  <div class="inner">
    <a class="md-promo-headline" href="/negocios/2024/01/15/empresa-crece/">Empresa crece</a>
  </div>
</div>
<div class="card"><h2 class="c-heading">Sin enlace</h2></div>
<div class="card"><span class="lg-promo-headline">   </span></div>
</body></html>`

const economiaPage = `<html><body>
<div class="card">
  <time>15 de enero de 2024</time>
  <a class="md-promo-headline" href="https://www.elfinancierocr.com/negocios/2024/01/15/empresa-crece/">Empresa crece</a>
  <a class="headline-text" href="/economia-y-politica/tipo-de-cambio/">Tipo de cambio</a>
</div>
</body></html>`

func financieroSelectors() FinancieroSelectors {
	return FinancieroSelectors{
		BaseURL:  financieroBase,
		Sections: []string{"/negocios/", "/finanzas/", "/economia-y-politica/"},
		HeadlineClasses: []string{
			"md-promo-headline", "lg-promo-headline", "sm-promo-headline", "c-heading", "headline-text",
		},
	}
}

func TestFinancieroSectionURLs(t *testing.T) {
	e := NewFinancieroExtractor(financieroSelectors(), &fakeFetcher{}, observability.NewNopLogger())
	assert.Equal(t, []string{
		financieroBase + "/negocios/",
		financieroBase + "/finanzas/",
		financieroBase + "/economia-y-politica/",
	}, e.SectionURLs())

	sel := financieroSelectors()
	sel.BaseURL = financieroBase + "/"
	e = NewFinancieroExtractor(sel, &fakeFetcher{}, observability.NewNopLogger())
	assert.Equal(t, financieroBase+"/negocios/", e.SectionURLs()[0])
}

func TestFinancieroExtract(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		financieroBase + "/negocios/":            negociosPage,
		financieroBase + "/economia-y-politica/": economiaPage,
	}}

	headlines, err := NewFinancieroExtractor(financieroSelectors(), f, observability.NewNopLogger()).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Headline{
		{Title: "Empresa crece", URL: financieroBase + "/negocios/2024/01/15/empresa-crece/", Source: SourceFinanciero, PostingDate: "15 de enero de 2024"},
		// no anchor: the link stays absent and the outermost ancestor's <time> is used
		{Title: "Sin enlace", URL: "", Source: SourceFinanciero, PostingDate: "15 de enero de 2024"},
		{Title: "Tipo de cambio", URL: financieroBase + "/economia-y-politica/tipo-de-cambio/", Source: SourceFinanciero, PostingDate: "15 de enero de 2024"},
	}, headlines)

	assert.Equal(t, []string{
		financieroBase + "/negocios/",
		financieroBase + "/finanzas/",
		financieroBase + "/economia-y-politica/",
	}, f.fetched)
}

func TestAncestorTimeTextOuterAncestorWins(t *testing.T) {
	doc := parseFragment(t, `<section class="outer"><time>2024-01-15</time>
		<div class="inner"><span class="headline-text">Titular</span></div></section>`)

	assert.Equal(t, "2024-01-15", ancestorTimeText(doc.Find(".headline-text")))
}

func TestAncestorTimeTextLastMatchNotNearest(t *testing.T) {
	doc := parseFragment(t, `<div class="outer"><time>externo</time>
		<div class="inner"><time>interno</time><span class="headline-text">Titular</span></div></div>`)

	assert.Equal(t, "externo", ancestorTimeText(doc.Find(".headline-text")))
}

func TestAncestorTimeTextMissing(t *testing.T) {
	doc := parseFragment(t, `<div><div><span class="headline-text">Titular</span></div></div>`)

	assert.Equal(t, DateNA, ancestorTimeText(doc.Find(".headline-text")))
}

func TestFinancieroAnchorWithoutHref(t *testing.T) {
	doc := parseFragment(t, `<a class="c-heading">Sin href</a>`)
	e := NewFinancieroExtractor(financieroSelectors(), &fakeFetcher{}, observability.NewNopLogger())

	assert.Equal(t, financieroBase, e.link(doc.Find("a")))
}

func TestFinancieroCancelledStopsSections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &cancellingFetcher{fakeFetcher: fakeFetcher{pages: map[string]string{
		financieroBase + "/negocios/":            negociosPage,
		financieroBase + "/economia-y-politica/": economiaPage,
	}}, cancel: cancel}

	headlines, err := NewFinancieroExtractor(financieroSelectors(), f, observability.NewNopLogger()).Extract(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, headlines, 2)
	assert.Equal(t, []string{financieroBase + "/negocios/"}, f.fetched)
}
