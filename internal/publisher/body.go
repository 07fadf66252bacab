package publisher

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blockdeals/blockdeals/internal/models"
)

const (
	freebieYes = "&#128077;"
	freebieNo  = "&#10060;"

	flagImageBase = "https://steemitimages.com/22x22/https://github.com/hjnilsson/country-flags/raw/master/png100px"

	maxLinkLabelLen = 40
)

const bodyTemplate = `
# %[1]s

![%[1]s](%[2]s)

| Details | |
| - | - |
| &#127991; **Coupon Code** | %[3]s |
| &#127758; **Country** | %[4]s ![%[5]s](%[6]s/%[5]s.png) |
| &#128198; **Starts** | %[7]s |
| &#128198; **Ends** | %[8]s |
| &#128176; **Freebie?** | %[9]s |
| &#128176; **Deal Link** | [%[10]s](%[11]s) |

## Description

%[12]s

---
### Find more deals or earn Steem for posting deals on [BlockDeals](https://blockdeals.org) today!
[![](https://blockdeals.org/assets/images/blockdeals_logo.png)](https://blockdeals.org)
`

func renderBody(deal models.Deal) string {
	freebie := freebieNo
	if deal.Freebie {
		freebie = freebieYes
	}

	return fmt.Sprintf(bodyTemplate,
		deal.Title,
		deal.ImageURL,
		deal.CouponCode,
		deal.Country,
		deal.CountryCode,
		flagImageBase,
		deal.DealStart,
		deal.DealEnd,
		freebie,
		shorten(deal.Title, maxLinkLabelLen),
		deal.URL,
		deal.Description,
	)
}

// shorten truncates s at a word boundary to at most width runes, appending
// an ellipsis marker when anything was cut.
func shorten(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= width {
		return s
	}

	const placeholder = "..."
	budget := width - len(placeholder)
	runes := []rune(s)

	cut := budget
	for i := budget; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " ") + placeholder
}

// slugify derives a URL-safe permlink from the post title, the way the
// content network derives them server side.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
