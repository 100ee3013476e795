package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"github.com/sifan077/ShortcutURL/internal/http/middleware"
	"github.com/sifan077/ShortcutURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// SignatureHeader carries the payment provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// WebhookProcessor applies verified payment provider events.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

// SubscriptionDeps groups dependencies required by the subscription API.
type SubscriptionDeps struct {
	Logger        *zap.Logger
	Subscriptions service.SubscriptionService
	Webhooks      WebhookProcessor
}

// SubscriptionHandler implements the /api/subscriptions endpoints.
type SubscriptionHandler struct {
	logger        *zap.Logger
	subscriptions service.SubscriptionService
	webhooks      WebhookProcessor
}

// NewSubscriptionHandler creates a subscription handler with the provided dependencies.
func NewSubscriptionHandler(deps SubscriptionDeps) *SubscriptionHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionHandler{
		logger:        logger,
		subscriptions: deps.Subscriptions,
		webhooks:      deps.Webhooks,
	}
}

// Register wires subscription routes onto router.
func (h *SubscriptionHandler) Register(router fiber.Router, auth *middleware.Auth) {
	subs := router.Group("/subscriptions")
	{
		subs.Get("/plans", h.Plans)
		subs.Post("/webhook", h.Webhook)
		subs.Get("/me", auth.Required(), h.Current)
		subs.Post("/checkout", auth.Required(), h.Checkout)
		subs.Post("/create-checkout-session", auth.Required(), h.Checkout)
		subs.Post("/cancel", auth.Required(), h.Cancel)
	}
}

// Plans handles GET /api/subscriptions/plans
func (h *SubscriptionHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(h.subscriptions.Plans())
}

// Current handles GET /api/subscriptions/me
func (h *SubscriptionHandler) Current(c *fiber.Ctx) error {
	account, err := h.subscriptions.Current(c.UserContext(), middleware.AccountFrom(c).ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(SubscriptionResponse{
		Subscription:       account.Tier,
		SubscriptionExpiry: account.SubscriptionExpiry,
		Features:           account.Features(),
	})
}

type checkoutRequest struct {
	PlanID string `json:"planId"`
}

// Checkout handles POST /api/subscriptions/checkout
func (h *SubscriptionHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.subscriptions.Checkout(c.UserContext(), middleware.AccountFrom(c).ID, req.PlanID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(session)
}

// Cancel handles POST /api/subscriptions/cancel
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	if err := h.subscriptions.Cancel(c.UserContext(), middleware.AccountFrom(c).ID); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Subscription will be canceled at the end of the billing period",
	})
}

// Webhook handles POST /api/subscriptions/webhook. The raw body is verified
// against the signature header before anything is applied.
func (h *SubscriptionHandler) Webhook(c *fiber.Ctx) error {
	result, err := h.webhooks.HandleWebhook(c.UserContext(), c.Body(), c.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			prometheus.BillingEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
			h.logger.Warn("rejected billing webhook", zap.String("ip", c.IP()), zap.Error(err))
		} else {
			prometheus.BillingEventsTotal.WithLabelValues(string(result.Type), "error").Inc()
		}
		return writeError(c, h.logger, err)
	}

	prometheus.BillingEventsTotal.WithLabelValues(string(result.Type), result.Outcome).Inc()
	return c.JSON(fiber.Map{
		"received": true,
		"outcome":  result.Outcome,
	})
}
