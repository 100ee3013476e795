package model

import "errors"

// ErrNoActiveSubscription is returned by billing providers when a customer has
// nothing to cancel.
var ErrNoActiveSubscription = errors.New("no active subscription")

// BillingEventType names the payment provider lifecycle events the service reacts to.
type BillingEventType string

const (
	EventCheckoutCompleted    BillingEventType = "checkout.session.completed"
	EventInvoicePaid          BillingEventType = "invoice.paid"
	EventSubscriptionCanceled BillingEventType = "customer.subscription.deleted"
)

// BillingReasonSubscriptionCreate marks the first invoice of a new subscription.
const BillingReasonSubscriptionCreate = "subscription_create"

// BillingEvent is a verified provider event reduced to the fields the billing
// bridge needs.
type BillingEvent struct {
	ID            string
	Type          BillingEventType
	CustomerID    string
	AccountID     string
	Plan          string
	BillingReason string
}

// CheckoutSession is a provider checkout page created for an account.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url,omitempty"`
}

// Plan is a purchasable subscription offer.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    Features `json:"features"`
}
