package converter

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// GetDescriptionConverterRules flattens item descriptions into short plain markdown.
// Images are dropped since the image itself is extracted separately.
func GetDescriptionConverterRules() []md.Rule {
	return []md.Rule{
		{
			Filter: []string{"h1", "h2", "h3", "h4", "h5", "h6"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				content = strings.TrimSpace(content)
				return md.String(content)
			},
		},
		{
			Filter: []string{"img", "figure", "picture"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				return md.String("")
			},
		},
		linkRule,
	}
}

var linkRule = md.Rule{
	Filter: []string{"a"},
	AdvancedReplacement: func(content string, selec *goquery.Selection, opt *md.Options) (md.AdvancedResult, bool) {
		// no href, no link: keep only the text
		href, ok := selec.Attr("href")
		if !ok || strings.TrimSpace(href) == "" || strings.TrimSpace(href) == "#" {
			return md.AdvancedResult{
				Markdown: content,
			}, false
		}

		href = opt.GetAbsoluteURL(selec, href, "")

		content = md.EscapeMultiLine(content)

		if strings.TrimSpace(content) == "" {
			content = selec.AttrOr("title", selec.AttrOr("aria-label", ""))
		}

		if content == "" {
			return md.AdvancedResult{
				Markdown: "",
			}, false
		}

		return md.AdvancedResult{
			Markdown: fmt.Sprintf("%s (%s)", content, href),
		}, false
	},
}
