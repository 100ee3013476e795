package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"golang.org/x/crypto/bcrypt"
)

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type accountGetterFunc func(ctx context.Context, id string) (*model.Account, error)

func (f accountGetterFunc) Get(ctx context.Context, id string) (*model.Account, error) {
	return f(ctx, id)
}

type recordingSink struct {
	events []model.ClickEvent
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, event model.ClickEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func TestRedirect_CreateThenResolve(t *testing.T) {
	repo := newMemLinkRepository()
	links := newTestLinkService(repo, nil)
	redirects := NewRedirectService(RedirectDeps{Links: repo, Now: fixedClock(testNow)})
	ctx := context.Background()

	for _, dest := range []string{"https://example.com", "http://example.org/a/b?q=1#frag", "https://sub.example.net:8443/path"} {
		link, err := links.Create(ctx, CreateLinkInput{URL: dest, Account: premiumAccount("p1")})
		if err != nil {
			t.Fatalf("Create(%q): %v", dest, err)
		}
		got, err := redirects.Resolve(ctx, RedirectRequest{Code: link.Code})
		if err != nil {
			t.Fatalf("Resolve(%q): %v", link.Code, err)
		}
		if got.URL != dest {
			t.Fatalf("Resolve returned %q, want %q", got.URL, dest)
		}
	}
}

func TestRedirect_NotFound(t *testing.T) {
	svc := NewRedirectService(RedirectDeps{Links: newMemLinkRepository()})
	_, err := svc.Resolve(context.Background(), RedirectRequest{Code: "missing"})
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestRedirect_ExpiredAlwaysGone(t *testing.T) {
	repo := newMemLinkRepository()
	past := testNow.Add(-time.Minute)
	repo.links["old1234"] = model.Link{Code: "old1234", URL: "https://example.com", ExpiresAt: &past}
	svc := NewRedirectService(RedirectDeps{Links: repo, Now: fixedClock(testNow)})

	for i := 0; i < 3; i++ {
		_, err := svc.Resolve(context.Background(), RedirectRequest{Code: "old1234"})
		if !errors.Is(err, ErrLinkExpired) {
			t.Fatalf("attempt %d: expected ErrLinkExpired, got %v", i, err)
		}
	}
	if repo.markExpired != 1 {
		t.Fatalf("MarkExpired called %d times, want 1", repo.markExpired)
	}
	if repo.links["old1234"].Clicks != 0 {
		t.Fatal("expired link must not count clicks")
	}
}

func TestRedirect_ExpiryEqualToNowIsGone(t *testing.T) {
	repo := newMemLinkRepository()
	at := testNow
	repo.links["edge123"] = model.Link{Code: "edge123", URL: "https://example.com", ExpiresAt: &at}
	svc := NewRedirectService(RedirectDeps{Links: repo, Now: fixedClock(testNow)})

	if _, err := svc.Resolve(context.Background(), RedirectRequest{Code: "edge123"}); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
}

func TestRedirect_Password(t *testing.T) {
	repo := newMemLinkRepository()
	hash, _ := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	repo.links["lock123"] = model.Link{Code: "lock123", URL: "https://example.com", PasswordHash: ptr(string(hash))}
	svc := NewRedirectService(RedirectDeps{Links: repo})
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, RedirectRequest{Code: "lock123"}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("no password: got %v", err)
	}
	if _, err := svc.Resolve(ctx, RedirectRequest{Code: "lock123", Password: "open-sesame!"}); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong password: got %v", err)
	}
	link, err := svc.Resolve(ctx, RedirectRequest{Code: "lock123", Password: "open-sesame"})
	if err != nil {
		t.Fatalf("correct password: %v", err)
	}
	if link.Clicks != 1 {
		t.Fatalf("clicks = %d, want 1", link.Clicks)
	}
}

func TestRedirect_AnalyticsFollowOwnerTier(t *testing.T) {
	owners := map[string]*model.Account{
		"premium": {ID: "premium", Tier: model.TierPremium},
		"free":    {ID: "free", Tier: model.TierFree},
	}
	repo := newMemLinkRepository()
	repo.links["prem123"] = model.Link{Code: "prem123", URL: "https://example.com", OwnerID: ptr("premium")}
	repo.links["free123"] = model.Link{Code: "free123", URL: "https://example.com", OwnerID: ptr("free")}

	sink := &recordingSink{}
	svc := NewRedirectService(RedirectDeps{
		Links: repo,
		Accounts: accountGetterFunc(func(ctx context.Context, id string) (*model.Account, error) {
			return owners[id], nil
		}),
		Clicks: sink,
		Now:    fixedClock(testNow),
	})
	ctx := context.Background()

	for _, code := range []string{"prem123", "free123"} {
		if _, err := svc.Resolve(ctx, RedirectRequest{Code: code, UserAgent: chromeUA}); err != nil {
			t.Fatalf("Resolve(%s): %v", code, err)
		}
	}

	prem := repo.links["prem123"]
	if prem.Clicks != 1 || prem.Analytics.Browsers["Chrome"] != 1 || prem.Analytics.Referrers["direct"] != 1 || prem.Analytics.Devices["desktop"] != 1 {
		t.Fatalf("premium analytics = %+v clicks=%d", prem.Analytics, prem.Clicks)
	}
	if prem.Analytics.Browsers["Safari"] != 0 {
		t.Fatal("Chrome UA must not count as Safari")
	}

	free := repo.links["free123"]
	if free.Clicks != 1 || len(free.Analytics.Browsers) != 0 {
		t.Fatalf("free link analytics = %+v clicks=%d", free.Analytics, free.Clicks)
	}

	if len(sink.events) != 2 || sink.events[0].Browser != "Chrome" {
		t.Fatalf("published events = %+v", sink.events)
	}
}

func TestRedirect_OwnerLookupFailureStillRedirects(t *testing.T) {
	repo := newMemLinkRepository()
	repo.links["own1234"] = model.Link{Code: "own1234", URL: "https://example.com", OwnerID: ptr("gone")}
	svc := NewRedirectService(RedirectDeps{
		Links: repo,
		Accounts: accountGetterFunc(func(ctx context.Context, id string) (*model.Account, error) {
			return nil, repository.ErrAccountNotFound
		}),
		Clicks: &recordingSink{err: errors.New("nats down")},
	})

	link, err := svc.Resolve(context.Background(), RedirectRequest{Code: "own1234"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if link.Clicks != 1 {
		t.Fatalf("clicks = %d", link.Clicks)
	}
}

func TestRedirect_PersistenceFailureAborts(t *testing.T) {
	repo := newMemLinkRepository()
	repo.links["abc1234"] = model.Link{Code: "abc1234", URL: "https://example.com"}
	repo.saveErr = errors.New("connection refused")
	svc := NewRedirectService(RedirectDeps{Links: repo})

	if _, err := svc.Resolve(context.Background(), RedirectRequest{Code: "abc1234"}); !errors.Is(err, repo.saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}
