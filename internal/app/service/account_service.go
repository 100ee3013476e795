package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// TokenIssuer mints bearer tokens for an account id.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// AccountService covers registration, login and profile management.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*model.Account, string, error)
	Login(ctx context.Context, email, password string) (*model.Account, string, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	UpdateProfile(ctx context.Context, id string, input ProfileUpdate) (*model.Account, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, id string) (model.Totals, error)
}

// RegisterInput captures data required to open an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate lists the profile fields to change; nil fields are kept.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// AccountDeps groups dependencies required by the account service.
type AccountDeps struct {
	Logger     *zap.Logger
	Accounts   repository.AccountRepository
	Links      repository.LinkRepository
	Tokens     TokenIssuer
	Now        func() time.Time
	BcryptCost int
}

type accountService struct {
	logger     *zap.Logger
	accounts   repository.AccountRepository
	links      repository.LinkRepository
	tokens     TokenIssuer
	now        func() time.Time
	bcryptCost int
}

// NewAccountService returns an AccountService backed by the given repositories.
func NewAccountService(deps AccountDeps) AccountService {
	s := &accountService{
		logger:     deps.Logger,
		accounts:   deps.Accounts,
		links:      deps.Links,
		tokens:     deps.Tokens,
		now:        deps.Now,
		bcryptCost: deps.BcryptCost,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

func (s *accountService) Register(ctx context.Context, input RegisterInput) (*model.Account, string, error) {
	name := strings.TrimSpace(input.Name)
	email, err := normalizeAddress(input.Email)
	if err != nil || name == "" {
		return nil, "", ErrInvalidProfile
	}
	if len(input.Password) < minPasswordLength {
		return nil, "", ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Tier:         model.TierFree,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID))
	return account, token, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*model.Account, string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	s.expire(ctx, account)

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return account, token, nil
}

// Get loads the account and applies lazy subscription expiry.
func (s *accountService) Get(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	s.expire(ctx, account)
	return account, nil
}

// expire downgrades a lapsed subscription. A failed write is logged; the
// caller still sees the downgraded account and the next read retries.
func (s *accountService) expire(ctx context.Context, account *model.Account) {
	if !account.ApplyExpiry(s.now()) {
		return
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger.Error("failed to persist subscription expiry",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("subscription expired", zap.String("account_id", account.ID))
}

func (s *accountService) UpdateProfile(ctx context.Context, id string, input ProfileUpdate) (*model.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidProfile
		}
		account.Name = name
	}
	if input.Email != nil {
		email, err := normalizeAddress(*input.Email)
		if err != nil {
			return nil, ErrInvalidProfile
		}
		account.Email = email
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, ErrInvalidPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = string(hash)
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// Delete removes the account and every link it owns.
func (s *accountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

func (s *accountService) Stats(ctx context.Context, id string) (model.Totals, error) {
	totals, err := s.links.Totals(ctx, &id)
	if err != nil {
		return model.Totals{}, fmt.Errorf("account stats: %w", err)
	}
	return totals, nil
}

func normalizeAddress(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Address), nil
}
