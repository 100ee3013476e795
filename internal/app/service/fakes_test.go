package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
)

// memLinkRepository enforces code uniqueness like the real store.
type memLinkRepository struct {
	mu          sync.Mutex
	links       map[string]model.Link
	markExpired int
	saveErr     error
}

func newMemLinkRepository() *memLinkRepository {
	return &memLinkRepository{links: map[string]model.Link{}}
}

func (m *memLinkRepository) Create(ctx context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[link.Code]; ok {
		return repository.ErrDuplicate
	}
	m.links[link.Code] = cloneLink(*link)
	return nil
}

func (m *memLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	out := cloneLink(link)
	return &out, nil
}

func (m *memLinkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Link
	for _, l := range m.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			out = append(out, cloneLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLinkRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memLinkRepository) SaveVisit(ctx context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.links[link.Code]
	if !ok {
		return repository.ErrLinkNotFound
	}
	stored.Clicks = link.Clicks
	stored.Analytics = link.Analytics
	m.links[link.Code] = cloneLink(stored)
	return nil
}

func (m *memLinkRepository) MarkExpired(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markExpired++
	if l, ok := m.links[code]; ok {
		l.Expired = true
		m.links[code] = l
	}
	return nil
}

func (m *memLinkRepository) Delete(ctx context.Context, code, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[code]
	if !ok || l.OwnerID == nil || *l.OwnerID != ownerID {
		return repository.ErrLinkNotFound
	}
	delete(m.links, code)
	return nil
}

func (m *memLinkRepository) Totals(ctx context.Context, ownerID *string) (model.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t model.Totals
	for _, l := range m.links {
		if ownerID != nil && (l.OwnerID == nil || *l.OwnerID != *ownerID) {
			continue
		}
		t.Links++
		t.Clicks += l.Clicks
	}
	return t, nil
}

func (m *memLinkRepository) deleteOwnedBy(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, l := range m.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			delete(m.links, code)
		}
	}
}

func cloneLink(l model.Link) model.Link {
	a := model.NewAnalytics()
	for k, v := range l.Analytics.Referrers {
		a.Referrers[k] = v
	}
	for k, v := range l.Analytics.Browsers {
		a.Browsers[k] = v
	}
	for k, v := range l.Analytics.Devices {
		a.Devices[k] = v
	}
	l.Analytics = a
	return l
}

type memAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	updates  int
	links    *memLinkRepository
}

func newMemAccountRepository(links *memLinkRepository) *memAccountRepository {
	return &memAccountRepository{accounts: map[string]model.Account{}, links: links}
}

func (m *memAccountRepository) put(a model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *memAccountRepository) Create(ctx context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *memAccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return m.find(func(a model.Account) bool { return a.ID == id })
}

func (m *memAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return m.find(func(a model.Account) bool { return a.Email == email })
}

func (m *memAccountRepository) GetByBillingCustomer(ctx context.Context, customerID string) (*model.Account, error) {
	return m.find(func(a model.Account) bool {
		return a.BillingCustomerID != nil && *a.BillingCustomerID == customerID
	})
}

func (m *memAccountRepository) find(match func(model.Account) bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			out := a
			return &out, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *memAccountRepository) Update(ctx context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	for id, existing := range m.accounts {
		if id != a.ID && existing.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	m.updates++
	m.accounts[a.ID] = *a
	return nil
}

func (m *memAccountRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.accounts[id]; !ok {
		m.mu.Unlock()
		return repository.ErrAccountNotFound
	}
	delete(m.accounts, id)
	m.mu.Unlock()
	if m.links != nil {
		m.links.deleteOwnedBy(id)
	}
	return nil
}

type memBillingEvents struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func newMemBillingEvents() *memBillingEvents {
	return &memBillingEvents{seen: map[string]bool{}}
}

func (m *memBillingEvents) Claim(ctx context.Context, id string, t model.BillingEventType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memBillingEvents) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	m.released = append(m.released, id)
	return nil
}

type mockVerifier struct {
	verifyFn func(ctx context.Context, token, remoteIP string) (bool, error)
}

func (m *mockVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, token, remoteIP)
	}
	return true, nil
}

type mockTokenIssuer struct{}

func (mockTokenIssuer) Issue(subject string) (string, error) {
	return "token-" + subject, nil
}

type mockBillingProvider struct {
	simulated       bool
	createCustomer  func(ctx context.Context, a *model.Account) (string, error)
	createSession   func(ctx context.Context, a *model.Account, p model.Plan) (*model.CheckoutSession, error)
	cancelFn        func(ctx context.Context, customerID string) error
	parseFn         func(payload []byte, signature string) (*model.BillingEvent, error)
	customersIssued int
}

func (m *mockBillingProvider) CreateCustomer(ctx context.Context, a *model.Account) (string, error) {
	m.customersIssued++
	if m.createCustomer != nil {
		return m.createCustomer(ctx, a)
	}
	return "cus_" + a.ID, nil
}

func (m *mockBillingProvider) CreateCheckoutSession(ctx context.Context, a *model.Account, p model.Plan) (*model.CheckoutSession, error) {
	if m.createSession != nil {
		return m.createSession(ctx, a, p)
	}
	return &model.CheckoutSession{ID: "cs_" + p.ID, URL: "https://pay.example/cs_" + p.ID}, nil
}

func (m *mockBillingProvider) CancelSubscription(ctx context.Context, customerID string) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, customerID)
	}
	return nil
}

func (m *mockBillingProvider) ParseEvent(payload []byte, signature string) (*model.BillingEvent, error) {
	if m.parseFn != nil {
		return m.parseFn(payload, signature)
	}
	return nil, errors.New("no parser configured")
}

func (m *mockBillingProvider) Simulated() bool {
	return m.simulated
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T {
	return &v
}
