package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"github.com/sifan077/ShortcutURL/internal/http/middleware"
	"github.com/stretchr/testify/require"
)

var errNotImplemented = errors.New("not implemented")

type mockLinkService struct {
	createFn    func(ctx context.Context, in service.CreateLinkInput) (*model.Link, error)
	getFn       func(ctx context.Context, code string) (*model.Link, error)
	listFn      func(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error)
	deleteFn    func(ctx context.Context, ownerID, code string) error
	analyticsFn func(ctx context.Context, owner *model.Account, code string) (*model.Link, error)
	totalsFn    func(ctx context.Context, ownerID *string) (model.Totals, error)
}

func (m *mockLinkService) Create(ctx context.Context, in service.CreateLinkInput) (*model.Link, error) {
	if m.createFn == nil {
		return nil, errNotImplemented
	}
	return m.createFn(ctx, in)
}

func (m *mockLinkService) Get(ctx context.Context, code string) (*model.Link, error) {
	if m.getFn == nil {
		return nil, errNotImplemented
	}
	return m.getFn(ctx, code)
}

func (m *mockLinkService) List(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error) {
	if m.listFn == nil {
		return nil, errNotImplemented
	}
	return m.listFn(ctx, ownerID, limit, offset)
}

func (m *mockLinkService) Delete(ctx context.Context, ownerID, code string) error {
	if m.deleteFn == nil {
		return errNotImplemented
	}
	return m.deleteFn(ctx, ownerID, code)
}

func (m *mockLinkService) Analytics(ctx context.Context, owner *model.Account, code string) (*model.Link, error) {
	if m.analyticsFn == nil {
		return nil, errNotImplemented
	}
	return m.analyticsFn(ctx, owner, code)
}

func (m *mockLinkService) Totals(ctx context.Context, ownerID *string) (model.Totals, error) {
	if m.totalsFn == nil {
		return model.Totals{}, errNotImplemented
	}
	return m.totalsFn(ctx, ownerID)
}

type mockRedirectService struct {
	resolveFn func(ctx context.Context, req service.RedirectRequest) (*model.Link, error)
}

func (m *mockRedirectService) Resolve(ctx context.Context, req service.RedirectRequest) (*model.Link, error) {
	return m.resolveFn(ctx, req)
}

type mockAccountService struct {
	registerFn func(ctx context.Context, in service.RegisterInput) (*model.Account, string, error)
	loginFn    func(ctx context.Context, email, password string) (*model.Account, string, error)
	updateFn   func(ctx context.Context, id string, in service.ProfileUpdate) (*model.Account, error)
	deleteFn   func(ctx context.Context, id string) error
	statsFn    func(ctx context.Context, id string) (model.Totals, error)
}

func (m *mockAccountService) Register(ctx context.Context, in service.RegisterInput) (*model.Account, string, error) {
	if m.registerFn == nil {
		return nil, "", errNotImplemented
	}
	return m.registerFn(ctx, in)
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*model.Account, string, error) {
	if m.loginFn == nil {
		return nil, "", errNotImplemented
	}
	return m.loginFn(ctx, email, password)
}

func (m *mockAccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	return nil, errNotImplemented
}

func (m *mockAccountService) UpdateProfile(ctx context.Context, id string, in service.ProfileUpdate) (*model.Account, error) {
	if m.updateFn == nil {
		return nil, errNotImplemented
	}
	return m.updateFn(ctx, id, in)
}

func (m *mockAccountService) Delete(ctx context.Context, id string) error {
	if m.deleteFn == nil {
		return errNotImplemented
	}
	return m.deleteFn(ctx, id)
}

func (m *mockAccountService) Stats(ctx context.Context, id string) (model.Totals, error) {
	if m.statsFn == nil {
		return model.Totals{}, errNotImplemented
	}
	return m.statsFn(ctx, id)
}

type mockSubscriptionService struct {
	currentFn  func(ctx context.Context, id string) (*model.Account, error)
	checkoutFn func(ctx context.Context, id, planID string) (*model.CheckoutSession, error)
	cancelFn   func(ctx context.Context, id string) error
}

func (m *mockSubscriptionService) Plans() []model.Plan {
	return service.Plans()
}

func (m *mockSubscriptionService) Current(ctx context.Context, id string) (*model.Account, error) {
	if m.currentFn == nil {
		return nil, errNotImplemented
	}
	return m.currentFn(ctx, id)
}

func (m *mockSubscriptionService) Checkout(ctx context.Context, id, planID string) (*model.CheckoutSession, error) {
	if m.checkoutFn == nil {
		return nil, errNotImplemented
	}
	return m.checkoutFn(ctx, id, planID)
}

func (m *mockSubscriptionService) Cancel(ctx context.Context, id string) error {
	if m.cancelFn == nil {
		return errNotImplemented
	}
	return m.cancelFn(ctx, id)
}

type mockWebhooks struct {
	handleFn func(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

func (m *mockWebhooks) HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error) {
	return m.handleFn(ctx, payload, signature)
}

// Token "alice" authenticates the free account, "bob" the premium one.
type stubTokens struct{}

func (stubTokens) Validate(token string) (string, error) {
	switch token {
	case "alice", "bob":
		return token, nil
	}
	return "", errors.New("invalid token")
}

type stubAccounts map[string]*model.Account

func (s stubAccounts) Get(ctx context.Context, id string) (*model.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func testAuth() *middleware.Auth {
	return middleware.NewAuth(stubTokens{}, stubAccounts{
		"alice": {ID: "alice", Name: "Alice", Email: "alice@example.com", Tier: model.TierFree},
		"bob":   {ID: "bob", Name: "Bob", Email: "bob@example.com", Tier: model.TierPremium},
	}, nil)
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

type testRequest struct {
	method  string
	path    string
	body    string
	token   string
	headers map[string]string
}

func send(t *testing.T, app *fiber.App, r testRequest) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if r.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}
