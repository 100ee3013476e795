package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/ShortcutURL/internal/app/model"
)

const signatureTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid or expired signature")
	ErrMissingSecret    = errors.New("webhook secret is not configured")
)

// Local simulates the payment provider. Checkout and cancel take effect
// immediately, and webhook events are signed with a shared secret using the
// header format "t=<unix>,v1=<hex hmac>".
type Local struct {
	secret      []byte
	frontendURL string
	now         func() time.Time
}

// NewLocal returns a simulator signing with secret.
func NewLocal(secret, frontendURL string) *Local {
	return &Local{
		secret:      []byte(secret),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// LocalEvent is the wire format of simulator webhook events.
type LocalEvent struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data LocalEventData `json:"data"`
}

type LocalEventData struct {
	Customer      string `json:"customer,omitempty"`
	AccountID     string `json:"userId,omitempty"`
	Plan          string `json:"planId,omitempty"`
	BillingReason string `json:"billing_reason,omitempty"`
}

func (l *Local) Simulated() bool { return true }

func (l *Local) CreateCustomer(ctx context.Context, account *model.Account) (string, error) {
	return "cus_local_" + account.ID, nil
}

func (l *Local) CreateCheckoutSession(ctx context.Context, account *model.Account, plan model.Plan) (*model.CheckoutSession, error) {
	id := "cs_local_" + uuid.NewString()
	return &model.CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("%s/dashboard?session_id=%s", l.frontendURL, id),
	}, nil
}

func (l *Local) CancelSubscription(ctx context.Context, customerID string) error {
	return nil
}

// Sign returns the signature header for payload at t.
func (l *Local) Sign(payload []byte, t time.Time) (string, error) {
	if len(l.secret) == 0 {
		return "", ErrMissingSecret
	}
	ts := strconv.FormatInt(t.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(l.mac(ts, payload))), nil
}

// ParseEvent verifies the signature header and decodes payload.
func (l *Local) ParseEvent(payload []byte, signature string) (*model.BillingEvent, error) {
	if err := l.verify(payload, signature); err != nil {
		return nil, err
	}

	var ev LocalEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, errors.New("event id and type are required")
	}

	return &model.BillingEvent{
		ID:            ev.ID,
		Type:          model.BillingEventType(ev.Type),
		CustomerID:    ev.Data.Customer,
		AccountID:     ev.Data.AccountID,
		Plan:          ev.Data.Plan,
		BillingReason: ev.Data.BillingReason,
	}, nil
}

func (l *Local) verify(payload []byte, header string) error {
	if len(l.secret) == 0 {
		return ErrMissingSecret
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(provided, l.mac(ts, payload)) {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := l.now().Sub(time.Unix(unix, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrInvalidSignature
	}
	return nil
}

func (l *Local) mac(ts string, payload []byte) []byte {
	m := hmac.New(sha256.New, l.secret)
	m.Write([]byte(ts))
	m.Write([]byte("."))
	m.Write(payload)
	return m.Sum(nil)
}
