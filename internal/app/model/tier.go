package model

import "fmt"

// Tier is the subscription level of an account.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Features is the set of capabilities and the link quota granted by a tier.
type Features struct {
	CustomAliases bool `json:"customUrlsEnabled"`
	Analytics     bool `json:"analyticsEnabled"`
	Expiry        bool `json:"urlExpiryEnabled"`
	Passwords     bool `json:"passwordProtectionEnabled"`
	MaxLinks      int  `json:"maxUrls"`
}

// tierFeatures is the only place that maps a tier to its features.
var tierFeatures = map[Tier]Features{
	TierFree: {
		MaxLinks: 10,
	},
	TierPremium: {
		CustomAliases: true,
		Analytics:     true,
		Expiry:        true,
		Passwords:     true,
		MaxLinks:      100,
	},
	TierEnterprise: {
		CustomAliases: true,
		Analytics:     true,
		Expiry:        true,
		Passwords:     true,
		MaxLinks:      1000,
	},
}

// ParseTier converts a plan or tier identifier into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierFeatures[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierFeatures[t]
	return ok
}

// Paid reports whether t is a paid tier.
func (t Tier) Paid() bool {
	return t == TierPremium || t == TierEnterprise
}

// Features returns the capabilities granted by t. Unknown tiers get the free set.
func (t Tier) Features() Features {
	if f, ok := tierFeatures[t]; ok {
		return f
	}
	return tierFeatures[TierFree]
}
