package handler

import (
	"strings"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// LinkResponse is the public view of a link. Password hashes never leave the
// service.
type LinkResponse struct {
	ShortCode         string     `json:"shortCode"`
	ShortURL          string     `json:"shortUrl"`
	OriginalURL       string     `json:"originalUrl"`
	Custom            bool       `json:"custom"`
	Clicks            int64      `json:"clicks"`
	ExpiresAt         *time.Time `json:"expiresAt"`
	Expired           bool       `json:"isExpired"`
	PasswordProtected bool       `json:"passwordProtected"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func newLinkResponse(baseURL string, link *model.Link) LinkResponse {
	return LinkResponse{
		ShortCode:         link.Code,
		ShortURL:          shortURL(baseURL, link.Code),
		OriginalURL:       link.URL,
		Custom:            link.Custom,
		Clicks:            link.Clicks,
		ExpiresAt:         link.ExpiresAt,
		Expired:           link.Expired,
		PasswordProtected: link.Protected(),
		CreatedAt:         link.CreatedAt,
	}
}

func shortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

// AnalyticsResponse carries a link's aggregated click breakdown.
type AnalyticsResponse struct {
	ShortCode string          `json:"shortCode"`
	Clicks    int64           `json:"clicks"`
	Analytics model.Analytics `json:"analytics"`
}

// AccountResponse is the profile view of an account.
type AccountResponse struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Subscription       model.Tier     `json:"subscription"`
	SubscriptionExpiry *time.Time     `json:"subscriptionExpiry"`
	Features           model.Features `json:"features"`
	Token              string         `json:"token,omitempty"`
}

func newAccountResponse(account *model.Account, token string) AccountResponse {
	return AccountResponse{
		ID:                 account.ID,
		Name:               account.Name,
		Email:              account.Email,
		Subscription:       account.Tier,
		SubscriptionExpiry: account.SubscriptionExpiry,
		Features:           account.Features(),
		Token:              token,
	}
}

// SubscriptionResponse describes the caller's current plan.
type SubscriptionResponse struct {
	Subscription       model.Tier     `json:"subscription"`
	SubscriptionExpiry *time.Time     `json:"subscriptionExpiry"`
	Features           model.Features `json:"features"`
}
