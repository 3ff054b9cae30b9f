package extract

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := Parse([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestNameFromTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		html  string
		want  string
	}{
		{
			name: "strips home suffix",
			html: `<html><head><title>Acme Co - Home</title></head></html>`,
			want: "Acme Co",
		},
		{
			name: "strips pipe suffix",
			html: `<html><head><title>Acme Co | Welcome</title></head></html>`,
			want: "Acme Co",
		},
		{
			name: "strips en-dash suffix",
			html: `<html><head><title>Acme Co – Consulting</title></head></html>`,
			want: "Acme Co",
		},
		{
			name: "plain title unchanged",
			html: `<html><head><title>Acme Co</title></head></html>`,
			want: "Acme Co",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := mustParse(t, tc.html)
			require.Equal(t, tc.want, Name(doc, "https://acme.com"))
		})
	}
}

func TestNameFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("og site name", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><head><meta property="og:site_name" content="Acme Inc"></head></html>`)
		require.Equal(t, "Acme Inc", Name(doc, "https://acme.com"))
	})

	t.Run("logo alt text", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><img class="site-logo" alt="Acme Widgets"></body></html>`)
		require.Equal(t, "Acme Widgets", Name(doc, "https://acme.com"))
	})

	t.Run("domain label", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body></body></html>`)
		require.Equal(t, "Acme-Corp", Name(doc, "https://www.acme-corp.com/about"))
	})
}

func TestDescriptionPrecedence(t *testing.T) {
	t.Parallel()

	t.Run("meta description wins", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><head><meta name="description" content="We build widgets."></head>
			<body><div id="about"><p>Older text.</p></div></body></html>`)
		require.Equal(t, "We build widgets.", Description(doc))
	})

	t.Run("about section paragraphs joined", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><section id="about"><p>First.</p><p>Second.</p></section></body></html>`)
		require.Equal(t, "First. Second.", Description(doc))
	})

	t.Run("main content capped at five paragraphs", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><main>
			<p>a</p><p>b</p><p>c</p><p>d</p><p>e</p><p>f</p>
		</main></body></html>`)
		require.Equal(t, "a b c d e", Description(doc))
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body></body></html>`)
		require.Empty(t, Description(doc))
	})
}

func TestBusinessAreas(t *testing.T) {
	t.Parallel()

	t.Run("headings in document order", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><div id="services">
			<h3>Plumbing</h3><h3>Heating</h3><h3>Cooling</h3>
		</div></body></html>`)
		require.Equal(t, []string{"Plumbing", "Heating", "Cooling"}, BusinessAreas(doc))
	})

	t.Run("class match when no id match", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><section class="our-products">
			<h2>Widgets</h2>
		</section></body></html>`)
		require.Equal(t, []string{"Widgets"}, BusinessAreas(doc))
	})

	t.Run("list fallback", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><ul class="services-list">
			<li>Audit</li><li>Advisory</li>
		</ul></body></html>`)
		require.Equal(t, []string{"Audit", "Advisory"}, BusinessAreas(doc))
	})

	t.Run("capped at ten", func(t *testing.T) {
		t.Parallel()
		html := `<html><body><div id="services">`
		for i := 0; i < 15; i++ {
			html += "<h3>Area</h3>"
		}
		html += `</div></body></html>`
		doc := mustParse(t, html)
		require.Len(t, BusinessAreas(doc), 10)
	})

	t.Run("no services", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><p>nothing here</p></body></html>`)
		require.Empty(t, BusinessAreas(doc))
	})
}

func TestContactPageURL(t *testing.T) {
	t.Parallel()

	t.Run("matches link text and resolves relative href", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><a href="/reach-us">Contact Us</a></body></html>`)
		require.Equal(t, "https://acme.com/reach-us", ContactPageURL(doc, "https://acme.com"))
	})

	t.Run("falls back to href match", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><a href="/contact">Get in touch</a></body></html>`)
		require.Equal(t, "https://acme.com/contact", ContactPageURL(doc, "https://acme.com"))
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><a href="/pricing">Pricing</a></body></html>`)
		require.Empty(t, ContactPageURL(doc, "https://acme.com"))
	})
}

func TestAboutPageURL(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body>
		<a href="/pricing">Pricing</a>
		<a href="/company">Our Company</a>
	</body></html>`)
	require.Equal(t, "https://acme.com/company", AboutPageURL(doc, "https://acme.com"))
}

func TestEmails(t *testing.T) {
	t.Parallel()

	t.Run("from text and mailto", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body>
			<p>Write to info@acme.com for details.</p>
			<a href="mailto:sales@acme.com?subject=hi">Sales</a>
		</body></html>`)
		emails := Emails(doc)
		require.Contains(t, emails, "info@acme.com")
		require.Contains(t, emails, "sales@acme.com")
	})

	t.Run("dedup across sources", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body>
			<p>info@acme.com</p>
			<a href="mailto:info@acme.com">Email</a>
		</body></html>`)
		require.Equal(t, []string{"info@acme.com"}, Emails(doc))
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><p>no addresses</p></body></html>`)
		require.Empty(t, Emails(doc))
	})
}

func TestPhones(t *testing.T) {
	t.Parallel()

	t.Run("from text", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><p>Call 555-123-4567 today.</p></body></html>`)
		require.Contains(t, Phones(doc), "555-123-4567")
	})

	t.Run("mixed separators normalized to dashes", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><p>Call us: +1 (555) 123 4567 or 555.123.4567</p></body></html>`)
		phones := Phones(doc)
		require.Contains(t, phones, "+1-(555)-123-4567")
		require.Contains(t, phones, "555-123-4567")
	})

	t.Run("from tel link", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><a href="tel:+15551234567">Call</a></body></html>`)
		require.Contains(t, Phones(doc), "+15551234567")
	})
}

func TestContactPerson(t *testing.T) {
	t.Parallel()

	t.Run("name and position", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><div class="team">
			<h3>Jane Smith</h3>
			<p class="position">Head of Sales</p>
		</div></body></html>`)
		name, position := ContactPerson(doc)
		require.Equal(t, "Jane Smith", name)
		require.Equal(t, "Head of Sales", position)
	})

	t.Run("name only", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><div class="staff">
			<span class="name">Sam Lee</span>
		</div></body></html>`)
		name, position := ContactPerson(doc)
		require.Equal(t, "Sam Lee", name)
		require.Empty(t, position)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, `<html><body><p>plain page</p></body></html>`)
		name, position := ContactPerson(doc)
		require.Empty(t, name)
		require.Empty(t, position)
	})
}
