package cache

import "strings"

// Base keys of every cached resource category.
const (
	KeyProducts         = "cachedProducts"
	KeySavedProducts    = "savedProducts"
	KeyBoughtProducts   = "boughtProducts"
	KeyUserProfile      = "userProfile"
	KeyReviewedOrders   = "reviewedOrders"
	KeyPersonalOrders   = "cachedPersonalOrders"
	KeyFAQs             = "cachedFAQs"
	KeyReviewedProducts = "reviewedProducts"
	KeyPolls            = "pollsCache"
	KeyAuthToken        = "authToken"
	KeyCartItems        = "cartItems"

	// TimestampSuffix is appended to a key to form its timestamp sibling.
	TimestampSuffix = "_timestamp"
)

// MatchKind selects how a Namespace recognises stored keys.
type MatchKind int

const (
	MatchPrefix MatchKind = iota
	MatchSuffix
	MatchExact
)

// Namespace describes one family of stored keys.
type Namespace struct {
	Resource string
	Key      string
	Match    MatchKind
}

// Matches reports whether a stored key belongs to the namespace.
func (n Namespace) Matches(key string) bool {
	switch n.Match {
	case MatchPrefix:
		return strings.HasPrefix(key, n.Key)
	case MatchSuffix:
		return strings.HasSuffix(key, n.Key)
	case MatchExact:
		return key == n.Key
	default:
		return false
	}
}

// KeyFor renders the concrete key for a scope (usually a user id). An empty
// scope yields the base key.
func (n Namespace) KeyFor(scope string) string {
	if scope == "" || n.Match != MatchPrefix {
		return n.Key
	}
	return n.Key + "_" + scope
}

// Well-known namespaces.
var (
	NamespaceProducts         = Namespace{Resource: "products", Key: KeyProducts, Match: MatchPrefix}
	NamespaceSavedProducts    = Namespace{Resource: "saved products", Key: KeySavedProducts, Match: MatchPrefix}
	NamespaceBoughtProducts   = Namespace{Resource: "bought products", Key: KeyBoughtProducts, Match: MatchPrefix}
	NamespaceUserProfile      = Namespace{Resource: "user profile", Key: KeyUserProfile, Match: MatchPrefix}
	NamespaceReviewedOrders   = Namespace{Resource: "reviewed orders", Key: KeyReviewedOrders, Match: MatchPrefix}
	NamespacePersonalOrders   = Namespace{Resource: "personal orders", Key: KeyPersonalOrders, Match: MatchPrefix}
	NamespaceFAQs             = Namespace{Resource: "faqs", Key: KeyFAQs, Match: MatchPrefix}
	NamespaceReviewedProducts = Namespace{Resource: "reviewed products", Key: KeyReviewedProducts, Match: MatchPrefix}
	NamespacePolls            = Namespace{Resource: "polls", Key: KeyPolls, Match: MatchPrefix}
	NamespaceTimestamps       = Namespace{Resource: "timestamps", Key: TimestampSuffix, Match: MatchSuffix}
	NamespaceAuthToken        = Namespace{Resource: "auth token", Key: KeyAuthToken, Match: MatchExact}
	NamespaceCart             = Namespace{Resource: "cart", Key: KeyCartItems, Match: MatchExact}
)

// UserNamespaces lists everything removed on sign-out. Adding a user-scoped
// resource means adding its namespace here.
var UserNamespaces = []Namespace{
	NamespaceProducts,
	NamespaceSavedProducts,
	NamespaceBoughtProducts,
	NamespaceUserProfile,
	NamespaceReviewedOrders,
	NamespacePersonalOrders,
	NamespaceFAQs,
	NamespaceReviewedProducts,
	NamespacePolls,
	NamespaceTimestamps,
	NamespaceAuthToken,
}

// TimestampKey returns the sibling key holding the write time of key.
func TimestampKey(key string) string { return key + TimestampSuffix }

// MatchAny reports whether key belongs to any of the namespaces.
func MatchAny(key string, namespaces ...Namespace) bool {
	for _, ns := range namespaces {
		if ns.Matches(key) {
			return true
		}
	}
	return false
}
