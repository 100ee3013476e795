// Package billing implements the payment provider handles: Stripe for real
// payments and a local HMAC-signed simulator for development.
package billing

import (
	"fmt"

	"github.com/sifan077/ShortcutURL/config"
	"github.com/sifan077/ShortcutURL/internal/app/service"
)

// Event metadata keys written on checkout sessions and customers.
const (
	metaAccountID = "userId"
	metaPlanID    = "planId"
)

// New builds the provider selected by cfg.Billing.Provider.
func New(cfg *config.Config) (service.BillingProvider, error) {
	switch cfg.Billing.Provider {
	case "stripe":
		return NewStripe(StripeConfig{
			SecretKey:     cfg.Billing.SecretKey,
			WebhookSecret: cfg.Billing.WebhookSecret,
			PriceIDs: map[string]string{
				"premium":    cfg.Billing.PremiumPriceID,
				"enterprise": cfg.Billing.EnterprisePriceID,
			},
			FrontendURL: cfg.App.FrontendURL,
		}), nil
	case "local", "":
		return NewLocal(cfg.Billing.WebhookSecret, cfg.App.FrontendURL), nil
	default:
		return nil, fmt.Errorf("billing: unknown provider %q", cfg.Billing.Provider)
	}
}
