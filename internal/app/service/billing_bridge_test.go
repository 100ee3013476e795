package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// jsonProvider decodes payloads as BillingEvent and accepts signature "valid".
func jsonProvider() *mockBillingProvider {
	return &mockBillingProvider{
		parseFn: func(payload []byte, signature string) (*model.BillingEvent, error) {
			if signature != "valid" {
				return nil, errors.New("bad signature")
			}
			var ev model.BillingEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return nil, err
			}
			return &ev, nil
		},
	}
}

func mustPayload(t *testing.T, ev model.BillingEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func newTestBridge(accounts *memAccountRepository, events *memBillingEvents) *BillingBridge {
	return NewBillingBridge(BillingBridgeDeps{
		Accounts:        accounts,
		Events:          events,
		BillingProvider: jsonProvider(),
		Now:             fixedClock(testNow),
	})
}

func TestBillingBridge_InvalidSignature(t *testing.T) {
	bridge := newTestBridge(newMemAccountRepository(nil), newMemBillingEvents())

	_, err := bridge.HandleWebhook(context.Background(), []byte(`{}`), "forged")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestBillingBridge_CheckoutCompleted(t *testing.T) {
	accounts := newMemAccountRepository(nil)
	accounts.put(model.Account{ID: "a1", Email: "a@example.com"})
	bridge := newTestBridge(accounts, newMemBillingEvents())

	res, err := bridge.HandleWebhook(context.Background(), mustPayload(t, model.BillingEvent{
		ID: "evt_1", Type: model.EventCheckoutCompleted, AccountID: "a1", CustomerID: "cus_1", Plan: "premium",
	}), "valid")
	if err != nil || res.Outcome != OutcomeApplied {
		t.Fatalf("HandleWebhook = %+v, %v", res, err)
	}

	stored := accounts.accounts["a1"]
	if stored.Tier != model.TierPremium || stored.Features().MaxLinks != 100 {
		t.Fatalf("tier = %s", stored.Tier)
	}
	if stored.SubscriptionExpiry == nil || !stored.SubscriptionExpiry.Equal(testNow.AddDate(0, 1, 0)) {
		t.Fatalf("expiry = %v", stored.SubscriptionExpiry)
	}
	if stored.BillingCustomerID == nil || *stored.BillingCustomerID != "cus_1" {
		t.Fatal("customer reference not stored")
	}
}

func TestBillingBridge_InvoicePaid(t *testing.T) {
	later := testNow.AddDate(0, 0, 5)
	earlier := testNow.AddDate(0, 0, -5)

	tests := []struct {
		name   string
		expiry *time.Time
		reason string
		want   time.Time
	}{
		{"renewal before expiry extends from expiry", &later, "subscription_cycle", later.AddDate(0, 1, 0)},
		{"renewal after expiry extends from now", &earlier, "subscription_cycle", testNow.AddDate(0, 1, 0)},
		{"first invoice is skipped", &later, model.BillingReasonSubscriptionCreate, later},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := newMemAccountRepository(nil)
			accounts.put(model.Account{ID: "a1", Email: "a@example.com", Tier: model.TierPremium, SubscriptionExpiry: tt.expiry, BillingCustomerID: ptr("cus_1")})
			bridge := newTestBridge(accounts, newMemBillingEvents())

			payload := mustPayload(t, model.BillingEvent{ID: "evt_inv", Type: model.EventInvoicePaid, CustomerID: "cus_1", BillingReason: tt.reason})
			for i := 0; i < 2; i++ {
				if _, err := bridge.HandleWebhook(context.Background(), payload, "valid"); err != nil {
					t.Fatalf("HandleWebhook: %v", err)
				}
			}

			got := accounts.accounts["a1"].SubscriptionExpiry
			if got == nil || !got.Equal(tt.want) {
				t.Fatalf("expiry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillingBridge_CancelReplayIsIdempotent(t *testing.T) {
	future := testNow.AddDate(0, 0, 20)
	accounts := newMemAccountRepository(nil)
	accounts.put(model.Account{ID: "a1", Email: "a@example.com", Tier: model.TierEnterprise, SubscriptionExpiry: &future, BillingCustomerID: ptr("cus_1")})
	bridge := newTestBridge(accounts, newMemBillingEvents())

	payload := mustPayload(t, model.BillingEvent{ID: "evt_del", Type: model.EventSubscriptionCanceled, CustomerID: "cus_1"})

	first, err := bridge.HandleWebhook(context.Background(), payload, "valid")
	if err != nil || first.Outcome != OutcomeApplied {
		t.Fatalf("first delivery = %+v, %v", first, err)
	}
	afterOnce := accounts.accounts["a1"]

	second, err := bridge.HandleWebhook(context.Background(), payload, "valid")
	if err != nil || second.Outcome != OutcomeReplayed {
		t.Fatalf("replay = %+v, %v", second, err)
	}
	afterTwice := accounts.accounts["a1"]

	if afterOnce.Tier != model.TierFree || afterOnce.SubscriptionExpiry != nil {
		t.Fatalf("not downgraded: %+v", afterOnce)
	}
	if afterTwice.Tier != afterOnce.Tier || afterTwice.SubscriptionExpiry != afterOnce.SubscriptionExpiry {
		t.Fatalf("replay changed state: %+v vs %+v", afterTwice, afterOnce)
	}
	if accounts.updates != 1 {
		t.Fatalf("account written %d times", accounts.updates)
	}
}

func TestBillingBridge_FailureReleasesClaim(t *testing.T) {
	events := newMemBillingEvents()
	bridge := newTestBridge(newMemAccountRepository(nil), events)

	payload := mustPayload(t, model.BillingEvent{ID: "evt_missing", Type: model.EventCheckoutCompleted, AccountID: "ghost", Plan: "premium"})
	res, err := bridge.HandleWebhook(context.Background(), payload, "valid")
	if err != nil {
		t.Fatalf("handler failure must still be acknowledged, got %v", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(events.released) != 1 || events.seen["evt_missing"] {
		t.Fatal("failed event must be released for redelivery")
	}
}

func TestBillingBridge_IgnoresOtherEvents(t *testing.T) {
	events := newMemBillingEvents()
	bridge := newTestBridge(newMemAccountRepository(nil), events)

	res, err := bridge.HandleWebhook(context.Background(), mustPayload(t, model.BillingEvent{ID: "evt_x", Type: "customer.created"}), "valid")
	if err != nil || res.Outcome != OutcomeIgnored {
		t.Fatalf("HandleWebhook = %+v, %v", res, err)
	}
	if len(events.seen) != 0 {
		t.Fatal("ignored events must not be claimed")
	}
}
