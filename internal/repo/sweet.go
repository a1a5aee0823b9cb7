package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweetshop/internal/models"
)

var ErrInsufficientQuantity = errors.New("insufficient quantity")

// SweetFields are the mutable columns replaced by UpdateSweet.
type SweetFields struct {
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Description string
}

func (r *GormRepo) ListSweets(ctx context.Context) ([]models.Sweet, error) {
	return r.findSweets(r.DB.WithContext(ctx))
}

func (r *GormRepo) GetSweet(ctx context.Context, id uuid.UUID) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&sweet).Error; err != nil {
		return nil, translate(err)
	}
	return &sweet, nil
}

func (r *GormRepo) SweetExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Sweet{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateSweet(ctx context.Context, sweet *models.Sweet) error {
	return translate(r.DB.WithContext(ctx).Create(sweet).Error)
}

func (r *GormRepo) UpdateSweet(ctx context.Context, id uuid.UUID, f SweetFields) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"name":        f.Name,
				"category":    f.Category,
				"price":       f.Price,
				"quantity":    f.Quantity,
				"description": f.Description,
				"updated_at":  tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&sweet).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &sweet, nil
}

func (r *GormRepo) DeleteSweet(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Sweet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustQuantity adds delta to the stock of one sweet. The guard lives in the
// UPDATE itself, so concurrent callers can never drive quantity below zero.
func (r *GormRepo) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Sweet{}).Where("id = ?", id)
		if delta < 0 {
			q = q.Where("quantity >= ?", -delta)
		}
		res := q.Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": tx.NowFunc(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Sweet{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientQuantity
		}
		return tx.Where("id = ?", id).First(&sweet).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &sweet, nil
}

func (r *GormRepo) SearchSweets(ctx context.Context, name, category string, minPrice, maxPrice float64) ([]models.Sweet, error) {
	return r.findSweets(r.DB.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(name)).
		Where(`LOWER(category) LIKE ? ESCAPE '\'`, likePattern(category)).
		Where("price BETWEEN ? AND ?", minPrice, maxPrice))
}

func (r *GormRepo) FindSweetsByNameContaining(ctx context.Context, name string) ([]models.Sweet, error) {
	return r.findSweets(r.DB.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(name)))
}

func (r *GormRepo) FindSweetsByCategory(ctx context.Context, category string) ([]models.Sweet, error) {
	return r.findSweets(r.DB.WithContext(ctx).
		Where("LOWER(category) = ?", strings.ToLower(category)))
}

func (r *GormRepo) FindSweetsByPriceBetween(ctx context.Context, minPrice, maxPrice float64) ([]models.Sweet, error) {
	return r.findSweets(r.DB.WithContext(ctx).
		Where("price BETWEEN ? AND ?", minPrice, maxPrice))
}

func (r *GormRepo) findSweets(q *gorm.DB) ([]models.Sweet, error) {
	items := make([]models.Sweet, 0)
	if err := q.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
