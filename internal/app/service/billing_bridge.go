package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"go.uber.org/zap"
)

// Webhook outcomes reported by BillingBridge.
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeIgnored  = "ignored"
	OutcomeFailed   = "failed"
)

// WebhookResult describes what happened to one delivered event.
type WebhookResult struct {
	EventID string
	Type    model.BillingEventType
	Outcome string
}

// BillingBridgeDeps groups dependencies required by the billing bridge.
type BillingBridgeDeps struct {
	Logger          *zap.Logger
	Accounts        repository.AccountRepository
	Events          repository.BillingEventRepository
	BillingProvider BillingProvider
	Now             func() time.Time
}

// BillingBridge applies payment provider lifecycle events to accounts.
type BillingBridge struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	events   repository.BillingEventRepository
	provider BillingProvider
	now      func() time.Time
}

// NewBillingBridge returns a BillingBridge.
func NewBillingBridge(deps BillingBridgeDeps) *BillingBridge {
	b := &BillingBridge{
		logger:   deps.Logger,
		accounts: deps.Accounts,
		events:   deps.Events,
		provider: deps.BillingProvider,
		now:      deps.Now,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// HandleWebhook verifies and applies one webhook delivery. It returns an
// error only for an unverifiable event or when the event cannot be claimed;
// handler failures are logged and reported through the result so the
// delivery is still acknowledged.
func (b *BillingBridge) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := b.provider.ParseEvent(payload, signature)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	result := WebhookResult{EventID: event.ID, Type: event.Type}

	if !handled(event.Type) {
		b.logger.Debug("ignoring billing event", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	first, err := b.events.Claim(ctx, event.ID, event.Type)
	if err != nil {
		return result, err
	}
	if !first {
		b.logger.Info("billing event already processed", zap.String("event_id", event.ID))
		result.Outcome = OutcomeReplayed
		return result, nil
	}

	if err := b.apply(ctx, event); err != nil {
		b.logger.Error("failed to apply billing event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		if relErr := b.events.Release(ctx, event.ID); relErr != nil {
			b.logger.Error("failed to release billing event", zap.String("event_id", event.ID), zap.Error(relErr))
		}
		result.Outcome = OutcomeFailed
		return result, nil
	}

	result.Outcome = OutcomeApplied
	return result, nil
}

func handled(t model.BillingEventType) bool {
	switch t {
	case model.EventCheckoutCompleted, model.EventInvoicePaid, model.EventSubscriptionCanceled:
		return true
	}
	return false
}

func (b *BillingBridge) apply(ctx context.Context, event *model.BillingEvent) error {
	switch event.Type {
	case model.EventCheckoutCompleted:
		return b.checkoutCompleted(ctx, event)
	case model.EventInvoicePaid:
		return b.invoicePaid(ctx, event)
	case model.EventSubscriptionCanceled:
		return b.subscriptionCanceled(ctx, event)
	}
	return nil
}

func (b *BillingBridge) checkoutCompleted(ctx context.Context, event *model.BillingEvent) error {
	tier, err := model.ParseTier(event.Plan)
	if err != nil || !tier.Paid() {
		return fmt.Errorf("checkout plan %q: %w", event.Plan, ErrInvalidPlan)
	}

	var account *model.Account
	if event.AccountID != "" {
		account, err = b.accounts.GetByID(ctx, event.AccountID)
	} else {
		account, err = b.accounts.GetByBillingCustomer(ctx, event.CustomerID)
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	account.Activate(tier, b.now())
	if event.CustomerID != "" {
		customerID := event.CustomerID
		account.BillingCustomerID = &customerID
	}
	if err := b.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	b.logger.Info("subscription activated",
		zap.String("account_id", account.ID),
		zap.String("tier", string(tier)),
	)
	return nil
}

func (b *BillingBridge) invoicePaid(ctx context.Context, event *model.BillingEvent) error {
	if event.BillingReason == model.BillingReasonSubscriptionCreate {
		return nil
	}

	account, err := b.accounts.GetByBillingCustomer(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if !account.Tier.Paid() {
		b.logger.Warn("renewal for account without paid tier",
			zap.String("account_id", account.ID),
			zap.String("event_id", event.ID),
		)
		return nil
	}

	from := b.now()
	if account.SubscriptionExpiry != nil && account.SubscriptionExpiry.After(from) {
		from = *account.SubscriptionExpiry
	}
	account.Activate(account.Tier, from)

	if err := b.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("extend subscription: %w", err)
	}
	return nil
}

func (b *BillingBridge) subscriptionCanceled(ctx context.Context, event *model.BillingEvent) error {
	account, err := b.accounts.GetByBillingCustomer(ctx, event.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			b.logger.Warn("cancellation for unknown customer", zap.String("event_id", event.ID))
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	account.Downgrade()
	if err := b.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("downgrade account: %w", err)
	}

	b.logger.Info("subscription canceled", zap.String("account_id", account.ID))
	return nil
}
