package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig configures the Stripe provider.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// PriceIDs maps plan ids to Stripe price ids.
	PriceIDs    map[string]string
	FrontendURL string
}

// Stripe talks to the Stripe API through an explicitly constructed client.
type Stripe struct {
	api           *client.API
	webhookSecret string
	priceIDs      map[string]string
	frontendURL   string
}

// NewStripe returns a Stripe provider. The client is built once here and
// never replaced.
func NewStripe(cfg StripeConfig) *Stripe {
	return &Stripe{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		priceIDs:      cfg.PriceIDs,
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

func (s *Stripe) Simulated() bool { return false }

func (s *Stripe) CreateCustomer(ctx context.Context, account *model.Account) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(account.Email),
		Name:  stripe.String(account.Name),
	}
	params.Context = ctx
	params.AddMetadata(metaAccountID, account.ID)

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return customer.ID, nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, account *model.Account, plan model.Plan) (*model.CheckoutSession, error) {
	priceID := s.priceIDs[plan.ID]
	if priceID == "" {
		return nil, fmt.Errorf("stripe: no price configured for plan %q", plan.ID)
	}
	if account.BillingCustomerID == nil {
		return nil, fmt.Errorf("stripe: account %s has no customer", account.ID)
	}

	metadata := map[string]string{
		metaAccountID: account.ID,
		metaPlanID:    plan.ID,
	}
	params := &stripe.CheckoutSessionParams{
		Customer:          account.BillingCustomerID,
		ClientReferenceID: stripe.String(account.ID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.frontendURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.frontendURL + "/pricing"),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &model.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CancelSubscription schedules every active subscription of customerID to
// end with the current period.
func (s *Stripe) CancelSubscription(ctx context.Context, customerID string) error {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx

	var ids []string
	iter := s.api.Subscriptions.List(params)
	for iter.Next() {
		ids = append(ids, iter.Subscription().ID)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("stripe: list subscriptions: %w", err)
	}
	if len(ids) == 0 {
		return model.ErrNoActiveSubscription
	}

	for _, id := range ids {
		update := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		update.Context = ctx
		if _, err := s.api.Subscriptions.Update(id, update); err != nil {
			return fmt.Errorf("stripe: cancel subscription %s: %w", id, err)
		}
	}
	return nil
}

// ParseEvent verifies the Stripe-Signature header and extracts the fields the
// billing bridge uses.
func (s *Stripe) ParseEvent(payload []byte, signature string) (*model.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe: verify webhook: %w", err)
	}
	return decodeStripeEvent(event)
}

func decodeStripeEvent(event stripe.Event) (*model.BillingEvent, error) {
	out := &model.BillingEvent{ID: event.ID, Type: model.BillingEventType(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.CustomerID = customerID(session.Customer)
		out.AccountID = session.Metadata[metaAccountID]
		if out.AccountID == "" {
			out.AccountID = session.ClientReferenceID
		}
		out.Plan = session.Metadata[metaPlanID]

	case stripe.EventTypeInvoicePaid:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("stripe: decode invoice: %w", err)
		}
		out.CustomerID = customerID(invoice.Customer)
		out.BillingReason = string(invoice.BillingReason)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode subscription: %w", err)
		}
		out.CustomerID = customerID(sub.Customer)
		out.AccountID = sub.Metadata[metaAccountID]
	}
	return out, nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
