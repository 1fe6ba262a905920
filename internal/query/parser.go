// Package query extracts lexical signals from free-text shopper messages:
// keyword tokens, an optional shop-name phrase, and an intent label from a
// fixed taxonomy.
package query

import (
	"regexp"
	"strings"
)

// Intent labels. ClassifyIntent evaluates the rule list top-to-bottom and the
// first match wins, so the order here is behavioral, not cosmetic.
const (
	IntentRecommendSimilar   = "recommend_similar"
	IntentFindProducts       = "find_products"
	IntentFindShops          = "find_shops"
	IntentOrderStatus        = "order_status"
	IntentReturnPolicy       = "return_policy"
	IntentUpdateProfile      = "update_profile"
	IntentContactSupport     = "contact_support"
	IntentGeneral            = "general"
	IntentListProductsByShop = "list_products_by_shop"
	IntentListProducts       = "list_products"
)

// Failure intents returned on terminal error paths so the caller can branch
// on the failure class.
const (
	IntentConfigurationError = "configuration_error"
	IntentNoData             = "no_data"
	IntentEmbeddingError     = "embedding_error"
	IntentError              = "error"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "for": {}, "from": {},
	"shop": {}, "store": {}, "me": {}, "my": {}, "show": {}, "list": {},
	"give": {}, "need": {}, "want": {}, "please": {}, "product": {},
	"products": {}, "some": {}, "options": {}, "with": {},
}

var (
	wordPattern       = regexp.MustCompile(`\b[a-z0-9]+\b`)
	shopPhrasePattern = regexp.MustCompile(`from\s+([^.,!?]+?)\s+(?:shop|store)`)
	listingPattern    = regexp.MustCompile(`list|show|give|recommend|options|suggest|display|find`)

	similarPattern        = regexp.MustCompile(`compare|similar`)
	findProductsPattern   = regexp.MustCompile(`buy|purchase|shop for|need a|looking for|recommend`)
	findShopsPattern      = regexp.MustCompile(`shop|store|seller|owner`)
	orderStatusPattern    = regexp.MustCompile(`order|track|status`)
	returnPolicyPattern   = regexp.MustCompile(`return|refund`)
	updateProfilePattern  = regexp.MustCompile(`profile|account|address|update info`)
	contactSupportPattern = regexp.MustCompile(`support|help|contact|agent`)
)

// Context holds the lexical signals extracted from one shopper message.
// Request-scoped: built per message and discarded with the response.
type Context struct {
	Message      string
	Keywords     []string
	ShopPhrase   string
	WantsListing bool
}

// Parse extracts all lexical signals from the message. Pure and synchronous.
func Parse(message string) Context {
	return Context{
		Message:      message,
		Keywords:     Keywords(message),
		ShopPhrase:   ShopPhrase(message),
		WantsListing: listingPattern.MatchString(strings.ToLower(message)),
	}
}

// Keywords tokenizes the message to lowercase alphanumeric words, dropping
// stop words, words shorter than 3 characters, and duplicates.
func Keywords(message string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(message), -1) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// ShopPhrase extracts the shop name from a "from <phrase> shop|store" pattern.
// Returns "" when the message has no such phrase.
func ShopPhrase(message string) string {
	match := shopPhrasePattern.FindStringSubmatch(strings.ToLower(message))
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// ClassifyIntent classifies the message against the fixed rule list.
// hasProducts reports whether retrieval already produced product matches; the
// recommend_similar rule only fires when it did.
func ClassifyIntent(message string, hasProducts bool) string {
	text := strings.ToLower(message)

	switch {
	case hasProducts && similarPattern.MatchString(text):
		return IntentRecommendSimilar
	case findProductsPattern.MatchString(text):
		return IntentFindProducts
	case findShopsPattern.MatchString(text):
		return IntentFindShops
	case orderStatusPattern.MatchString(text):
		return IntentOrderStatus
	case returnPolicyPattern.MatchString(text):
		return IntentReturnPolicy
	case updateProfilePattern.MatchString(text):
		return IntentUpdateProfile
	case contactSupportPattern.MatchString(text):
		return IntentContactSupport
	default:
		return IntentGeneral
	}
}
