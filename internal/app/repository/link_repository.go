package repository

import (
	"context"

	"github.com/sifan077/ShortcutURL/internal/app/model"
	"gorm.io/gorm"
)

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	SaveVisit(ctx context.Context, link *model.Link) error
	MarkExpired(ctx context.Context, code string) error
	Delete(ctx context.Context, code, ownerID string) error
	Totals(ctx context.Context, ownerID *string) (model.Totals, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts link. A taken code yields ErrDuplicate.
func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	return translate(r.db.WithContext(ctx).Create(link).Error, ErrLinkNotFound)
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		return nil, translate(err, ErrLinkNotFound)
	}
	return &link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Link, error) {
	var result []model.Link
	if err := ownerPage(r.db.WithContext(ctx), ownerID, limit, offset).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ownerPage scopes tx to one page of ownerID's links, newest first.
func ownerPage(tx *gorm.DB, ownerID string, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return tx.
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
}

func (r *linkRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Link{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

// SaveVisit persists the click counter and analytics of link.
func (r *linkRepository) SaveVisit(ctx context.Context, link *model.Link) error {
	result := saveVisit(r.db.WithContext(ctx), link)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// saveVisit writes only the visit columns; the destination, owner and
// password are never touched by a redirect.
func saveVisit(tx *gorm.DB, link *model.Link) *gorm.DB {
	return tx.
		Model(link).
		Select("Clicks", "Analytics", "UpdatedAt").
		Updates(link)
}

// MarkExpired flags the link as expired. Calling it again is a no-op.
func (r *linkRepository) MarkExpired(ctx context.Context, code string) error {
	return markExpired(r.db.WithContext(ctx), code).Error
}

func markExpired(tx *gorm.DB, code string) *gorm.DB {
	return tx.
		Model(&model.Link{}).
		Where("code = ? AND expired = ?", code, false).
		Update("expired", true)
}

func (r *linkRepository) Delete(ctx context.Context, code, ownerID string) error {
	result := deleteOwnedLink(r.db.WithContext(ctx), code, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func deleteOwnedLink(tx *gorm.DB, code, ownerID string) *gorm.DB {
	return tx.
		Where("code = ? AND owner_id = ?", code, ownerID).
		Delete(&model.Link{})
}

// Totals counts links and clicks, for one owner or globally when ownerID is nil.
func (r *linkRepository) Totals(ctx context.Context, ownerID *string) (model.Totals, error) {
	var totals model.Totals
	if err := totalsScope(r.db.WithContext(ctx), ownerID).Scan(&totals).Error; err != nil {
		return model.Totals{}, err
	}
	return totals, nil
}

func totalsScope(tx *gorm.DB, ownerID *string) *gorm.DB {
	q := tx.
		Model(&model.Link{}).
		Select("COUNT(*) AS links, COALESCE(SUM(clicks), 0) AS clicks")
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	return q
}
