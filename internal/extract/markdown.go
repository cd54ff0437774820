package extract

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// noise is removed before conversion; none of it carries page data.
const noise = "script, style, noscript, iframe, svg, link, meta, form, nav, footer"

// ToMarkdown strips non-content nodes from page and converts the body to
// markdown. Relative links are resolved against pageURL.
func ToMarkdown(page, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find(noise).Remove()

	body := doc.Find("body")
	var html string
	if body.Length() > 0 {
		html, err = body.Html()
	} else {
		html, err = doc.Html()
	}
	if err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}

	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}

	converter := md.NewConverter(domain, true, nil)
	converter.Use(plugin.Table())
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// Chunk splits markdown on blank lines into pieces of at most size runes.
// Paragraphs with fewer than minWords words are dropped. A paragraph that
// alone exceeds size is cut at rune boundaries.
func Chunk(markdown string, size, minWords int) []string {
	if size <= 0 {
		size = utf8.RuneCountInString(markdown) + 1
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range strings.Split(markdown, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || len(strings.Fields(para)) < minWords {
			continue
		}

		n := utf8.RuneCountInString(para)
		if n > size {
			flush()
			runes := []rune(para)
			for start := 0; start < len(runes); start += size {
				end := min(start+size, len(runes))
				chunks = append(chunks, string(runes[start:end]))
			}
			continue
		}

		sep := 0
		if currentLen > 0 {
			sep = 2
		}
		if currentLen+sep+n > size {
			flush()
			sep = 0
		}
		if sep > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentLen += sep + n
	}
	flush()

	return chunks
}
