package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/omnicart/assistant/internal/query"
	"github.com/omnicart/assistant/internal/retrieval"
)

// Action is a navigation suggestion the storefront can render as a button.
type Action struct {
	Type  string            `json:"type"`
	Label string            `json:"label"`
	Href  string            `json:"href,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// ComposeProductReply renders a deterministic reply from matched products:
// the lead product with shop, price, stock, and rating, then up to two
// companions. Never calls the model, so the output is literally reproducible.
func ComposeProductReply(products []retrieval.Product, shopPhrase string, maxWords int) string {
	if len(products) == 0 {
		return ""
	}

	primary := products[0]
	stockLabel := "currently unavailable"
	if primary.InStock {
		stockLabel = "currently in stock"
	}
	shopLabel := ""
	if primary.ShopName != "" {
		shopLabel = "from " + primary.ShopName
	}
	ratingLabel := ""
	if primary.Rating > 0 {
		ratingLabel = fmt.Sprintf("It carries an average rating of %.1f.", primary.Rating)
	}

	intro := strings.TrimSpace(strings.Join(nonEmpty(
		primary.Name,
		shopLabel,
		"is priced at",
		priceLabel(primary),
		"and is",
		stockLabel+".",
		ratingLabel,
	), " "))

	var companions []string
	for _, p := range products[1:] {
		companions = append(companions, fmt.Sprintf("%s (%s)", p.Name, priceLabel(p)))
		if len(companions) == 2 {
			break
		}
	}

	suggestion := ""
	if len(companions) > 0 {
		suggestion = "You can also consider " + strings.Join(companions, " or ") + "."
	}
	if shopPhrase != "" && primary.ShopName == "" {
		suggestion += " This result matches your requested shop search."
	}

	combined := strings.Join(strings.Fields(intro+" "+suggestion), " ")
	return capWords(combined, maxWords)
}

// BuildActions assembles the navigation actions for a response: one per
// matched product (view product, and visit shop when known), one per matched
// shop, plus intent-specific defaults. Deduplicated by (type, href, label).
func BuildActions(intent string, products []retrieval.Product, shops []retrieval.Shop) []Action {
	var actions []Action
	seen := make(map[string]struct{})
	add := func(a Action) {
		key := a.Type + "|" + a.Href + "|" + a.Label
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		actions = append(actions, a)
	}

	for i, p := range products {
		if i == 3 {
			break
		}
		if p.URL != "" {
			add(Action{
				Type:  "navigate",
				Label: "View " + p.Name,
				Href:  p.URL,
				Data:  map[string]string{"productId": p.ID},
			})
		}
		if p.ShopURL != "" {
			shopName := p.ShopName
			if shopName == "" {
				shopName = "shop"
			}
			add(Action{
				Type:  "navigate",
				Label: fmt.Sprintf("Visit %s for %s", shopName, p.Name),
				Href:  p.ShopURL,
				Data:  map[string]string{"shopId": p.ShopID},
			})
		}
	}

	for i, s := range shops {
		if i == 3 {
			break
		}
		if s.URL != "" {
			add(Action{
				Type:  "navigate",
				Label: "Visit " + s.Name,
				Href:  s.URL,
				Data:  map[string]string{"shopId": s.ID},
			})
		}
	}

	switch intent {
	case query.IntentFindProducts:
		if len(products) == 0 {
			add(Action{Type: "navigate", Label: "Browse all products", Href: "/products"})
		}
	case query.IntentFindShops:
		if len(shops) == 0 {
			add(Action{Type: "navigate", Label: "Browse featured shops", Href: "/shop"})
		}
	case query.IntentOrderStatus:
		add(Action{Type: "navigate", Label: "View my orders", Href: "/orders"})
	case query.IntentUpdateProfile:
		add(Action{Type: "navigate", Label: "Update profile", Href: "/profile"})
	case query.IntentContactSupport:
		add(Action{Type: "navigate", Label: "Contact support", Href: "/support"})
	case query.IntentReturnPolicy:
		add(Action{Type: "navigate", Label: "Return & refund policy", Href: "/support/returns"})
	}

	return actions
}

func priceLabel(p retrieval.Product) string {
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + strconv.FormatFloat(p.Price, 'f', -1, 64)
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
