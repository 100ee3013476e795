package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SignAndParse(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	l := NewLocal("whsec_test", "http://localhost:5173/")
	l.now = func() time.Time { return now }

	payload, err := json.Marshal(LocalEvent{
		ID:   "evt_local_1",
		Type: string(model.EventCheckoutCompleted),
		Data: LocalEventData{Customer: "cus_local_a1", AccountID: "a1", Plan: "premium"},
	})
	require.NoError(t, err)

	header, err := l.Sign(payload, now)
	require.NoError(t, err)

	ev, err := l.ParseEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_local_1", ev.ID)
	assert.Equal(t, model.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "a1", ev.AccountID)
	assert.Equal(t, "premium", ev.Plan)
	assert.Equal(t, "cus_local_a1", ev.CustomerID)
}

func TestLocal_ParseEvent_Rejects(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	l := NewLocal("whsec_test", "")
	l.now = func() time.Time { return now }
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"customer":"cus_1"}}`)

	valid, err := l.Sign(payload, now)
	require.NoError(t, err)
	stale, err := l.Sign(payload, now.Add(-time.Hour))
	require.NoError(t, err)
	other, err := NewLocal("someone-else", "").Sign(payload, now)
	require.NoError(t, err)

	tests := map[string]struct {
		payload []byte
		header  string
	}{
		"missing header":  {payload, ""},
		"tampered body":   {[]byte(strings.Replace(string(payload), "cus_1", "cus_2", 1)), valid},
		"wrong secret":    {payload, other},
		"stale timestamp": {payload, stale},
		"garbled":         {payload, "t=abc,v1=zz"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := l.ParseEvent(tt.payload, tt.header)
			assert.True(t, errors.Is(err, ErrInvalidSignature), "got %v", err)
		})
	}
}

func TestLocal_Checkout(t *testing.T) {
	l := NewLocal("s", "http://localhost:5173/")
	session, err := l.CreateCheckoutSession(context.Background(), &model.Account{ID: "a1"}, model.Plan{ID: "premium"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.URL, "http://localhost:5173/dashboard?session_id=cs_local_"))
	assert.True(t, l.Simulated())
}
