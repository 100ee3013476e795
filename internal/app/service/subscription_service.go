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

// BillingProvider is the payment provider handle. It is built once at
// startup and passed to the services that need it.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, account *model.Account) (string, error)
	CreateCheckoutSession(ctx context.Context, account *model.Account, plan model.Plan) (*model.CheckoutSession, error)
	CancelSubscription(ctx context.Context, customerID string) error
	ParseEvent(payload []byte, signature string) (*model.BillingEvent, error)
	// Simulated reports whether checkout and cancel take effect without
	// provider callbacks.
	Simulated() bool
}

var planCatalog = []struct {
	tier        model.Tier
	name        string
	description string
	price       float64
}{
	{model.TierPremium, "Premium", "Custom aliases, click analytics, expiry and password protection", 9.99},
	{model.TierEnterprise, "Enterprise", "Everything in Premium with a larger link quota for teams", 29.99},
}

// Plans lists the purchasable plans. Features come from the tier mapping.
func Plans() []model.Plan {
	plans := make([]model.Plan, 0, len(planCatalog))
	for _, p := range planCatalog {
		plans = append(plans, model.Plan{
			ID:          string(p.tier),
			Name:        p.name,
			Description: p.description,
			Price:       p.price,
			Currency:    "EUR",
			Interval:    "month",
			Features:    p.tier.Features(),
		})
	}
	return plans
}

// PlanByID returns the plan with the given id.
func PlanByID(id string) (model.Plan, bool) {
	for _, p := range Plans() {
		if p.ID == id {
			return p, true
		}
	}
	return model.Plan{}, false
}

// SubscriptionService manages plan purchases for accounts.
type SubscriptionService interface {
	Plans() []model.Plan
	Current(ctx context.Context, accountID string) (*model.Account, error)
	Checkout(ctx context.Context, accountID, planID string) (*model.CheckoutSession, error)
	Cancel(ctx context.Context, accountID string) error
}

// SubscriptionDeps groups dependencies required by the subscription service.
type SubscriptionDeps struct {
	Logger          *zap.Logger
	Accounts        repository.AccountRepository
	AccountReader   AccountGetter
	BillingProvider BillingProvider
	Now             func() time.Time
}

type subscriptionService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	reader   AccountGetter
	provider BillingProvider
	now      func() time.Time
}

// NewSubscriptionService returns a SubscriptionService.
func NewSubscriptionService(deps SubscriptionDeps) SubscriptionService {
	s := &subscriptionService{
		logger:   deps.Logger,
		accounts: deps.Accounts,
		reader:   deps.AccountReader,
		provider: deps.BillingProvider,
		now:      deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *subscriptionService) Plans() []model.Plan {
	return Plans()
}

func (s *subscriptionService) Current(ctx context.Context, accountID string) (*model.Account, error) {
	return s.reader.Get(ctx, accountID)
}

func (s *subscriptionService) Checkout(ctx context.Context, accountID, planID string) (*model.CheckoutSession, error) {
	plan, ok := PlanByID(planID)
	if !ok {
		return nil, ErrInvalidPlan
	}

	account, err := s.reader.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.BillingCustomerID == nil {
		customerID, err := s.provider.CreateCustomer(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("%w: create customer: %v", ErrProviderUnavailable, err)
		}
		account.BillingCustomerID = &customerID
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, fmt.Errorf("store billing customer: %w", err)
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, account, plan)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProviderUnavailable, err)
	}

	if s.provider.Simulated() {
		account.Activate(model.Tier(plan.ID), s.now())
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, fmt.Errorf("activate plan: %w", err)
		}
		s.logger.Info("simulated subscription activated",
			zap.String("account_id", account.ID),
			zap.String("plan", plan.ID),
		)
	}

	return session, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, accountID string) error {
	account, err := s.reader.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account.BillingCustomerID == nil || !account.Tier.Paid() {
		return ErrNoSubscription
	}

	if err := s.provider.CancelSubscription(ctx, *account.BillingCustomerID); err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return err
		}
		return fmt.Errorf("%w: cancel subscription: %v", ErrProviderUnavailable, err)
	}

	if s.provider.Simulated() {
		account.Downgrade()
		if err := s.accounts.Update(ctx, account); err != nil {
			return fmt.Errorf("downgrade account: %w", err)
		}
	}

	s.logger.Info("subscription cancellation requested", zap.String("account_id", account.ID))
	return nil
}
