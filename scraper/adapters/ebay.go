package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"powersearch/models"
)

// ExtractEbay parses an eBay search results page.
func ExtractEbay(content, baseURL string) (listings []models.Listing) {
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

	doc.Find("li.s-item").Each(func(_ int, item *goquery.Selection) {
		title := CleanText(item.Find(".s-item__title").First().Text())
		// eBay renders a hidden template card first
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			return
		}
		href, ok := item.Find("a.s-item__link").First().Attr("href")
		if !ok || href == "" {
			return
		}
		productURL := Resolve(baseURL, href)

		price := ParsePrice(item.Find(".s-item__price").First().Text())
		original := ParsePrice(item.Find(".s-item__trending-price .STRIKETHROUGH, .s-item__price--strike").First().Text())
		rating := ParseRating(item.Find(".x-star-rating .clipped").First().Text())
		reviews := ParseCount(item.Find(".s-item__reviews-count span").First().Text())
		shipping := item.Find(".s-item__shipping, .s-item__logisticsCost").First().Text()

		meta := map[string]any{}
		if cond := CleanText(item.Find(".SECONDARY_INFO").First().Text()); cond != "" {
			meta["condition"] = cond
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
			FreeShipping:       mentionsFreeShipping(shipping),
			Image:              ImageURL(item, baseURL),
			URL:                productURL,
			InStock:            true,
			Metadata:           meta,
		})
	})
	return listings
}
