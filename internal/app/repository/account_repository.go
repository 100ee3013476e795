package repository

import (
	"context"
	"strings"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"gorm.io/gorm"
)

// AccountRepository defines the data access contract for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByBillingCustomer(ctx context.Context, customerID string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id string) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a GORM-backed AccountRepository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	account.Email = normalizeEmail(account.Email)
	return translate(r.db.WithContext(ctx).Create(account).Error, ErrAccountNotFound)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

func (r *accountRepository) GetByBillingCustomer(ctx context.Context, customerID string) (*model.Account, error) {
	return r.first(ctx, "billing_customer_id = ?", customerID)
}

func (r *accountRepository) first(ctx context.Context, query string, arg any) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where(query, arg).First(&account).Error; err != nil {
		return nil, translate(err, ErrAccountNotFound)
	}
	return &account, nil
}

// Update writes every mutable column of account, including cleared ones.
func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	account.Email = normalizeEmail(account.Email)
	result := updateAccount(r.db.WithContext(ctx), account)
	if result.Error != nil {
		return translate(result.Error, ErrAccountNotFound)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// updateAccount writes every column but the key and creation time, so nil
// expiry and customer id are stored as NULL.
func updateAccount(tx *gorm.DB, account *model.Account) *gorm.DB {
	return tx.
		Model(account).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(account)
}

// Delete removes the account together with every link it owns.
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteOwnerLinks(tx, id).Error; err != nil {
			return err
		}
		result := deleteAccount(tx, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}

func deleteOwnerLinks(tx *gorm.DB, ownerID string) *gorm.DB {
	return tx.Where("owner_id = ?", ownerID).Delete(&model.Link{})
}

func deleteAccount(tx *gorm.DB, id string) *gorm.DB {
	return tx.Where("id = ?", id).Delete(&model.Account{})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
