// Package extract derives structured signals from fetched HTML. Every
// function is pure and best-effort: malformed or unexpected markup yields
// empty values, never errors.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// maxBusinessAreas caps the number of service headings harvested per page.
const maxBusinessAreas = 10

var (
	titleHomeSuffixRe = regexp.MustCompile(` - Home.*$`)
	titlePipeSuffixRe = regexp.MustCompile(` \| .*$`)
	titleDashSuffixRe = regexp.MustCompile(` – .*$`)

	wwwPrefixRe  = regexp.MustCompile(`^www\.`)
	commonTLDRe  = regexp.MustCompile(`\.com$|\.org$|\.net$`)
	logoClassRe  = regexp.MustCompile(`(?i)logo`)
	aboutAttrRe  = regexp.MustCompile(`(?i)about`)
	serviceRe    = regexp.MustCompile(`(?i)service|product|solution`)
	contactRe    = regexp.MustCompile(`(?i)contact`)
	aboutLinkRe  = regexp.MustCompile(`(?i)about|company`)
	headingsSel  = "h1, h2, h3, h4, h5, h6"
)

// Parse builds a goquery document from raw page bytes.
func Parse(content []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Name extracts the site name. Precedence: document title stripped of
// separator suffixes, site-name metadata, logo alt text, then the URL's
// domain label.
func Name(doc *goquery.Document, pageURL string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		title = titleHomeSuffixRe.ReplaceAllString(title, "")
		title = titlePipeSuffixRe.ReplaceAllString(title, "")
		title = titleDashSuffixRe.ReplaceAllString(title, "")
		return strings.TrimSpace(title)
	}

	if content, ok := doc.Find(`meta[property="og:site_name"]`).First().Attr("content"); ok {
		if name := strings.TrimSpace(content); name != "" {
			return name
		}
	}

	var logoAlt string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !logoClassRe.MatchString(class) {
			return true
		}
		if alt := strings.TrimSpace(s.AttrOr("alt", "")); alt != "" {
			logoAlt = alt
			return false
		}
		return true
	})
	if logoAlt != "" {
		return logoAlt
	}

	return domainLabel(pageURL)
}

func domainLabel(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	domain := wwwPrefixRe.ReplaceAllString(u.Hostname(), "")
	domain = commonTLDRe.ReplaceAllString(domain, "")
	return titleCase(domain)
}

// titleCase capitalizes the first letter of each word, mirroring how domain
// labels like "acme-corp" render as "Acme-Corp".
func titleCase(s string) string {
	prevLetter := false
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			if !prevLetter {
				prevLetter = true
				return unicode.ToUpper(r)
			}
			return r
		}
		prevLetter = false
		return r
	}, s)
}

// Description extracts the site description. Precedence: meta description,
// paragraphs of an "about"-labeled section joined with spaces, then the
// first five paragraphs of main content.
func Description(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc := strings.TrimSpace(content); desc != "" {
			return desc
		}
	}

	about := firstMatchingContainer(doc, aboutAttrRe)
	if about != nil {
		if desc := joinParagraphs(about, 0); desc != "" {
			return desc
		}
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find("#content").First()
	}
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	return joinParagraphs(main, 5)
}

// firstMatchingContainer returns the first section/div whose id or class
// matches the pattern, preferring id matches over class matches.
func firstMatchingContainer(doc *goquery.Document, re *regexp.Regexp) *goquery.Selection {
	var byID, byClass *goquery.Selection
	doc.Find("section, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if byID == nil && re.MatchString(s.AttrOr("id", "")) {
			byID = s
			return false
		}
		if byClass == nil && re.MatchString(s.AttrOr("class", "")) {
			byClass = s
		}
		return true
	})
	if byID != nil {
		return byID
	}
	return byClass
}

func joinParagraphs(sel *goquery.Selection, limit int) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	sel.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
		return true
	})
	return strings.Join(parts, " ")
}

// BusinessAreas extracts up to ten service/product headings in document
// order. When no service-labeled container carries headings, list items of
// service-labeled lists are used instead. No dedup at this stage.
func BusinessAreas(doc *goquery.Document) []string {
	var areas []string

	collect := func(sel *goquery.Selection) {
		sel.Find(headingsSel).Each(func(_ int, h *goquery.Selection) {
			if len(areas) >= maxBusinessAreas {
				return
			}
			if text := strings.TrimSpace(h.Text()); text != "" {
				areas = append(areas, text)
			}
		})
	}

	matched := false
	doc.Find("section, div").Each(func(_ int, s *goquery.Selection) {
		if serviceRe.MatchString(s.AttrOr("id", "")) {
			matched = true
			collect(s)
		}
	})
	if !matched {
		doc.Find("section, div").Each(func(_ int, s *goquery.Selection) {
			if serviceRe.MatchString(s.AttrOr("class", "")) {
				collect(s)
			}
		})
	}

	if len(areas) == 0 {
		doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
			if !serviceRe.MatchString(list.AttrOr("class", "")) {
				return
			}
			list.Find("li").Each(func(_ int, li *goquery.Selection) {
				if len(areas) >= maxBusinessAreas {
					return
				}
				if text := strings.TrimSpace(li.Text()); text != "" {
					areas = append(areas, text)
				}
			})
		})
	}

	if len(areas) > maxBusinessAreas {
		areas = areas[:maxBusinessAreas]
	}
	return areas
}

// ContactPageURL returns the first hyperlink matching "contact" by visible
// text or href, resolved against the base URL. Empty when absent.
func ContactPageURL(doc *goquery.Document, baseURL string) string {
	return linkMatching(doc, baseURL, contactRe)
}

// AboutPageURL returns the first hyperlink matching "about"/"company".
func AboutPageURL(doc *goquery.Document, baseURL string) string {
	return linkMatching(doc, baseURL, aboutLinkRe)
}

func linkMatching(doc *goquery.Document, baseURL string, re *regexp.Regexp) string {
	href := firstLink(doc, func(s *goquery.Selection) bool {
		return re.MatchString(strings.TrimSpace(s.Text()))
	})
	if href == "" {
		href = firstLink(doc, func(s *goquery.Selection) bool {
			return re.MatchString(s.AttrOr("href", ""))
		})
	}
	if href == "" {
		return ""
	}
	return resolveURL(baseURL, href)
}

func firstLink(doc *goquery.Document, match func(*goquery.Selection) bool) string {
	var href string
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !match(s) {
			return true
		}
		if h := strings.TrimSpace(s.AttrOr("href", "")); h != "" {
			href = h
			return false
		}
		return true
	})
	return href
}

func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	phoneSepRe = regexp.MustCompile(`[-.\s]+`)
)

// Emails returns the distinct email addresses found in page text and
// mailto links, text matches first.
func Emails(doc *goquery.Document) []string {
	var emails []string
	seen := make(map[string]struct{})
	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" {
			return
		}
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}

	for _, m := range emailRe.FindAllString(pageText(doc), -1) {
		add(m)
	}
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		addr := strings.TrimPrefix(s.AttrOr("href", ""), "mailto:")
		addr, _, _ = strings.Cut(addr, "?")
		add(addr)
	})
	return emails
}

// Phones returns the distinct phone numbers found in page text and tel
// links. Separator runs in text matches are collapsed to a single dash;
// tel targets are kept verbatim.
func Phones(doc *goquery.Document) []string {
	var phones []string
	seen := make(map[string]struct{})
	add := func(phone string) {
		phone = strings.TrimSpace(phone)
		if phone == "" {
			return
		}
		if _, dup := seen[phone]; dup {
			return
		}
		seen[phone] = struct{}{}
		phones = append(phones, phone)
	}

	for _, m := range phoneRe.FindAllString(pageText(doc), -1) {
		add(phoneSepRe.ReplaceAllString(m, "-"))
	}
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		add(strings.TrimPrefix(s.AttrOr("href", ""), "tel:"))
	})
	return phones
}

func pageText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text()
	}
	return body.Text()
}

// ContactPerson scans person-labeled containers for a name heading and an
// adjacent position label. Both values are empty when no container matches.
func ContactPerson(doc *goquery.Document) (name, position string) {
	doc.Find(".contact, .team, .staff, .employee").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := strings.TrimSpace(s.Find(headingsSel + ", .name, .contact-name").First().Text())
		if candidate == "" {
			return true
		}
		name = candidate
		position = strings.TrimSpace(s.Find(".position, .title, .job-title, .role").First().Text())
		return false
	})
	return name, position
}
