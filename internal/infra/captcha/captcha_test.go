package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sifan077/ShortcutURL/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSiteverify(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"accepted", http.StatusOK, `{"success":true}`, true, false},
		{"rejected", http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`, false, false},
		{"provider error", http.StatusServiceUnavailable, ``, false, true},
		{"garbage", http.StatusOK, `<html>`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSiteverify(t, tt.status, tt.body)
			v := New(config.CaptchaConfig{Secret: "shh", VerifyURL: srv.URL, Timeout: time.Second})

			ok, err := v.Verify(context.Background(), "token", "203.0.113.7")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
