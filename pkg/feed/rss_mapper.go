package feed

import (
	"bytes"
	"html"
	"log"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/piraces/feedcache/pkg/converter"
	"github.com/piraces/feedcache/pkg/helpers"
	domainfeed "github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

// RSSMapper maps RSS, Atom and JSON Feed documents. Items without a usable image
// are skipped.
type RSSMapper struct {
}

func NewRSSMapper() *RSSMapper {
	return &RSSMapper{}
}

func (m *RSSMapper) Map(response Response) ([]domainfeed.Image, error) {
	if response.StatusCode != 200 {
		return nil, errors.Wrapf(ErrInvalidData, "unexpected status code %d", response.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(response.Body))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidData, err.Error())
	}

	images := make([]domainfeed.Image, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		image, ok := itemToImage(item)
		if !ok {
			log.Printf("[DEBUG] skipping item %q without an image", item.Title)
			continue
		}
		images = append(images, image)
	}

	return images, nil
}

func itemToImage(item *gofeed.Item) (domainfeed.Image, bool) {
	address, ok := itemImage(item)
	if !ok {
		return domainfeed.Image{}, false
	}

	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = address.String()
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))

	return domainfeed.NewImage(id, itemDescription(item), itemLocation(item), address), true
}

func itemImage(item *gofeed.Item) (domainfeed.Address, bool) {
	candidates := []string{}
	if item.Image != nil {
		candidates = append(candidates, item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") {
			candidates = append(candidates, enclosure.URL)
		}
	}
	candidates = append(candidates, firstImageSource(item.Content), firstImageSource(item.Description))

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		if !helpers.IsValidHttpUrl(candidate) && item.Link != "" {
			joined, err := helpers.UrlJoin(item.Link, candidate)
			if err != nil {
				continue
			}
			candidate = joined
		}

		address, err := domainfeed.NewAddress(candidate)
		if err == nil {
			return address, true
		}
	}

	return domainfeed.Address{}, false
}

func firstImageSource(s string) string {
	if s == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

func itemDescription(item *gofeed.Item) *string {
	description := strings.TrimSpace(html.UnescapeString(htmlToMarkdown(item.Description, converter.GetDescriptionConverterRules())))
	if description == "" {
		description = strings.TrimSpace(item.Title)
	}
	if description == "" {
		return nil
	}

	description = strings.ToValidUTF8(description, "")
	return &description
}

func itemLocation(item *gofeed.Item) *string {
	georss, ok := item.Extensions["georss"]
	if !ok {
		return nil
	}

	for _, extension := range georss["featurename"] {
		if location := strings.TrimSpace(extension.Value); location != "" {
			return &location
		}
	}

	return nil
}

func htmlToMarkdown(s string, converterRules []md.Rule) string {
	mdConverter := md.NewConverter("", true, nil)
	mdConverter.AddRules(converterRules...)

	convertedS, err := mdConverter.ConvertString(s)
	if err != nil {
		log.Printf("[WARN] failure to convert to markdown (defaulting to plain text): %v", err)
		p := bluemonday.StripTagsPolicy()
		convertedS = p.Sanitize(s)
	}

	return convertedS
}
