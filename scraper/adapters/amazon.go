package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"powersearch/models"
)

// ExtractAmazon parses an Amazon search results page.
func ExtractAmazon(content, baseURL string) (listings []models.Listing) {
	defer func() {
		if recover() != nil {
			listings = nil
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}
	currency := DetectCurrency(content)

	doc.Find(`div[data-component-type="s-search-result"]`).Each(func(_ int, item *goquery.Selection) {
		link := item.Find("h2 a").First()
		if link.Length() == 0 {
			link = item.Find("a.a-link-normal[href]").First()
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		productURL := Resolve(baseURL, href)
		title := CleanText(item.Find("h2").First().Text())
		if title == "" {
			return
		}

		price := ParsePrice(item.Find(".a-price .a-offscreen").First().Text())
		original := ParsePrice(item.Find(".a-price.a-text-price .a-offscreen").First().Text())
		rating := ParseRating(item.Find("i.a-icon-star-small, i.a-icon-star-mini, i.a-icon-star").First().Text())
		reviews := ParseCount(item.Find("span.a-size-base.s-underline-text").First().Text())

		meta := map[string]any{}
		if asin, ok := item.Attr("data-asin"); ok && asin != "" {
			meta["asin"] = asin
		}
		if strings.Contains(item.Text(), "Sponsored") {
			meta["sponsored"] = true
		}

		listings = append(listings, models.Listing{
			ID:                 ListingID(title, productURL),
			Title:              title,
			Price:              price,
			Currency:           currency,
			OriginalPrice:      original,
			DiscountPercentage: Discount(price, original),
			Rating:             rating,
			ReviewCount:        reviews,
			FreeShipping:       mentionsFreeShipping(item.Text()),
			Image:              ImageURL(item, baseURL),
			URL:                productURL,
			InStock:            true,
			Metadata:           meta,
		})
	})
	return listings
}
