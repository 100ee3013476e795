package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountGetter loads an account with lazy subscription expiry applied.
type AccountGetter interface {
	Get(ctx context.Context, id string) (*model.Account, error)
}

// ClickSink receives click events after a successful redirect.
type ClickSink interface {
	Publish(ctx context.Context, event model.ClickEvent) error
}

// RedirectService resolves short codes to destinations.
type RedirectService interface {
	Resolve(ctx context.Context, req RedirectRequest) (*model.Link, error)
}

// RedirectRequest carries the code and request context of a redirect.
type RedirectRequest struct {
	Code      string
	Password  string
	Referrer  string
	UserAgent string
	IP        string
}

// RedirectDeps groups dependencies required by the redirect service.
type RedirectDeps struct {
	Logger   *zap.Logger
	Links    repository.LinkRepository
	Accounts AccountGetter
	Clicks   ClickSink
	Now      func() time.Time
}

type redirectService struct {
	logger   *zap.Logger
	links    repository.LinkRepository
	accounts AccountGetter
	clicks   ClickSink
	now      func() time.Time
}

// NewRedirectService returns a RedirectService. Accounts and Clicks are optional.
func NewRedirectService(deps RedirectDeps) RedirectService {
	s := &redirectService{
		logger:   deps.Logger,
		links:    deps.Links,
		accounts: deps.Accounts,
		clicks:   deps.Clicks,
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

// Resolve returns the link to redirect to after recording the visit. The
// visit is persisted before Resolve returns; a persistence failure is an error.
func (s *redirectService) Resolve(ctx context.Context, req RedirectRequest) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}

	if link.ExpiredAt(s.now()) {
		if !link.Expired {
			if err := s.links.MarkExpired(ctx, link.Code); err != nil {
				return nil, fmt.Errorf("mark expired: %w", err)
			}
			link.Expired = true
		}
		return nil, ErrLinkExpired
	}

	if link.Protected() {
		if req.Password == "" {
			return nil, ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(req.Password)); err != nil {
			return nil, ErrPasswordMismatch
		}
	}

	visit := Classify(req.Referrer, req.UserAgent)
	if s.analyticsEnabled(ctx, link) {
		link.Analytics.Record(visit)
	}
	link.Clicks++

	if err := s.links.SaveVisit(ctx, link); err != nil {
		return nil, fmt.Errorf("save visit: %w", err)
	}

	s.publish(ctx, link.Code, req, visit)
	return link, nil
}

func (s *redirectService) analyticsEnabled(ctx context.Context, link *model.Link) bool {
	if link.OwnerID == nil || s.accounts == nil {
		return false
	}
	owner, err := s.accounts.Get(ctx, *link.OwnerID)
	if err != nil {
		s.logger.Warn("skipping analytics: owner lookup failed",
			zap.String("code", link.Code),
			zap.Error(err),
		)
		return false
	}
	return owner.Features().Analytics
}

func (s *redirectService) publish(ctx context.Context, code string, req RedirectRequest, visit model.Visit) {
	if s.clicks == nil {
		return
	}
	event := model.ClickEvent{
		ID:        uuid.NewString(),
		LinkCode:  code,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referrer:  visit.Referrer,
		Browser:   visit.Browser,
		Device:    visit.Device,
		Timestamp: s.now().UTC(),
	}
	if err := s.clicks.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish click event", zap.String("code", code), zap.Error(err))
	}
}
