package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"powersearch/models"
)

const maxGenericItems = 10

// ExtractGeneric applies structural heuristics to an unknown storefront page:
// any product/item container with a link and a title-like child becomes a
// listing. It never panics; unparseable input yields no listings.
func ExtractGeneric(content, baseURL string) (listings []models.Listing) {
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
	seen := make(map[string]struct{})

	doc.Find(`div[class*="product"], li[class*="product"], div[class*="item"], li[class*="item"]`).
		EachWithBreak(func(_ int, item *goquery.Selection) bool {
			if len(listings) >= maxGenericItems {
				return false
			}

			href, ok := item.Find("a[href]").First().Attr("href")
			if !ok {
				return true
			}
			productURL := Resolve(baseURL, href)
			if _, dup := seen[productURL]; dup {
				return true
			}

			titleEl := item.Find(`h2, h3, h4, [class*="title"], [class*="name"]`).First()
			title := CleanText(titleEl.Text())
			if title == "" {
				return true
			}
			seen[productURL] = struct{}{}

			var price *float64
			if m := currencyPriceRegexp.FindString(item.Text()); m != "" {
				price = ParsePrice(m)
			} else {
				price = ParsePrice(item.Find(`[class*="price"]`).First().Text())
			}

			listings = append(listings, models.Listing{
				ID:       ListingID(title, productURL),
				Title:    title,
				Price:    price,
				Currency: currency,
				Image:    ImageURL(item, baseURL),
				URL:      productURL,
				InStock:  true,
			})
			return true
		})
	return listings
}
