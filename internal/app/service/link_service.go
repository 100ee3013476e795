package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/ShortcutURL/internal/app/gate"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxExpiryDays = 3650

// Verifier checks a human-verification token with an external provider.
// ok is false when the provider rejected the token; err is set when the
// provider could not be reached.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (ok bool, err error)
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	Create(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	Get(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error)
	Delete(ctx context.Context, ownerID, code string) error
	Analytics(ctx context.Context, owner *model.Account, code string) (*model.Link, error)
	Totals(ctx context.Context, ownerID *string) (model.Totals, error)
}

// LinkDeps groups dependencies required by the link service.
type LinkDeps struct {
	Logger     *zap.Logger
	Links      repository.LinkRepository
	Verifier   Verifier
	Codes      CodeGenerator
	Now        func() time.Time
	BcryptCost int
}

type linkService struct {
	logger     *zap.Logger
	links      repository.LinkRepository
	verifier   Verifier
	codes      CodeGenerator
	now        func() time.Time
	bcryptCost int
}

// NewLinkService returns a service implementation backed by the given repository.
func NewLinkService(deps LinkDeps) LinkService {
	s := &linkService{
		logger:     deps.Logger,
		links:      deps.Links,
		verifier:   deps.Verifier,
		codes:      deps.Codes,
		now:        deps.Now,
		bcryptCost: deps.BcryptCost,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.codes == nil {
		s.codes = RandomCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

// CreateLinkInput captures data required to create a link. Account is nil
// for anonymous requesters.
type CreateLinkInput struct {
	URL           string
	Account       *model.Account
	Alias         string
	ExpiresInDays int
	Password      string
	CaptchaToken  string
	RemoteIP      string
}

func (in CreateLinkInput) requested() []gate.Capability {
	var caps []gate.Capability
	if in.Alias != "" {
		caps = append(caps, gate.CustomAlias)
	}
	if in.ExpiresInDays != 0 {
		caps = append(caps, gate.Expiry)
	}
	if in.Password != "" {
		caps = append(caps, gate.Password)
	}
	return caps
}

func (s *linkService) Create(ctx context.Context, in CreateLinkInput) (*model.Link, error) {
	dest, err := parseDestination(in.URL)
	if err != nil {
		return nil, err
	}

	if in.Account == nil {
		if err := s.verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
			return nil, err
		}
	} else {
		count, err := s.links.CountByOwner(ctx, in.Account.ID)
		if err != nil {
			return nil, fmt.Errorf("count links: %w", err)
		}
		if count >= int64(in.Account.Features().MaxLinks) {
			return nil, ErrQuotaExceeded
		}
	}

	if err := gate.EvaluateAll(gate.TierOf(in.Account), in.requested()...); err != nil {
		return nil, err
	}

	now := s.now()
	link := &model.Link{
		URL:       dest,
		Analytics: model.NewAnalytics(),
		CreatedAt: now,
	}
	if in.Account != nil {
		owner := in.Account.ID
		link.OwnerID = &owner
	}

	if in.Alias != "" {
		if err := validateAlias(in.Alias); err != nil {
			return nil, err
		}
	}

	if in.ExpiresInDays != 0 {
		if in.ExpiresInDays < 1 || in.ExpiresInDays > maxExpiryDays {
			return nil, ErrInvalidExpiry
		}
		expiresAt := now.AddDate(0, 0, in.ExpiresInDays)
		link.ExpiresAt = &expiresAt
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash link password: %w", err)
		}
		hashed := string(hash)
		link.PasswordHash = &hashed
	}

	if in.Alias != "" {
		link.Code = in.Alias
		link.Custom = true
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrAliasTaken
			}
			return nil, fmt.Errorf("create link: %w", err)
		}
		return link, nil
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		link.Code = code

		err = s.links.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.logger.Debug("short code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *linkService) verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrVerificationRequired
	}
	if s.verifier == nil {
		return nil
	}
	ok, err := s.verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !ok {
		return ErrVerificationFailed
	}
	return nil
}

func (s *linkService) Get(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) List(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error) {
	links, err := s.links.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) Delete(ctx context.Context, ownerID, code string) error {
	if err := s.links.Delete(ctx, code, ownerID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// Analytics returns the link with its aggregates when owner owns it and the
// owner's tier grants analytics. Links owned by someone else look missing.
func (s *linkService) Analytics(ctx context.Context, owner *model.Account, code string) (*model.Link, error) {
	if err := gate.Evaluate(gate.TierOf(owner), gate.Analytics); err != nil {
		return nil, err
	}
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link.OwnerID == nil || *link.OwnerID != owner.ID {
		return nil, fmt.Errorf("get link: %w", repository.ErrLinkNotFound)
	}
	return link, nil
}

func (s *linkService) Totals(ctx context.Context, ownerID *string) (model.Totals, error) {
	totals, err := s.links.Totals(ctx, ownerID)
	if err != nil {
		return model.Totals{}, fmt.Errorf("link totals: %w", err)
	}
	return totals, nil
}

func parseDestination(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw, nil
	default:
		return "", ErrInvalidURL
	}
}
