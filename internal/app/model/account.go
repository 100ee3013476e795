package model

import "time"

// Account is a registered user. Feature flags and quota are not stored; they
// always come from Tier.Features.
type Account struct {
	ID                 string     `gorm:"primaryKey;type:uuid"`
	Name               string     `gorm:"size:120;not null"`
	Email              string     `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash       string     `gorm:"size:255;not null"`
	Tier               Tier       `gorm:"size:16;not null;default:free"`
	SubscriptionExpiry *time.Time `gorm:"index"`
	BillingCustomerID  *string    `gorm:"size:255;uniqueIndex"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}

// Features returns the capabilities granted by the account's tier.
func (a *Account) Features() Features {
	return a.Tier.Features()
}

// Activate moves the account to tier with an expiry one billing period after from.
func (a *Account) Activate(tier Tier, from time.Time) {
	expiry := NextBillingPeriod(from)
	a.Tier = tier
	a.SubscriptionExpiry = &expiry
}

// Downgrade returns the account to the free tier and clears its expiry.
func (a *Account) Downgrade() {
	a.Tier = TierFree
	a.SubscriptionExpiry = nil
}

// ApplyExpiry downgrades the account when its subscription expiry is not after
// now. It reports whether the account changed.
func (a *Account) ApplyExpiry(now time.Time) bool {
	if a.SubscriptionExpiry == nil || a.SubscriptionExpiry.After(now) {
		return false
	}
	a.Downgrade()
	return true
}

// NextBillingPeriod returns the end of one billing period starting at t.
func NextBillingPeriod(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}
