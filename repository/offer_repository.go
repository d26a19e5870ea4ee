package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/models"
)

const offerColumns = `id, title, description, image_url, discount_percent, discount_amount, minimum_order, valid_until, is_active, created_at`

type OfferRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// List returns all offers, or only the currently usable ones when activeOnly is set.
func (r *OfferRepository) List(ctx context.Context, activeOnly bool) ([]models.SpecialOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.SpecialOffer{}
	var err error
	if activeOnly {
		err = r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+offerColumns+` FROM special_offers
WHERE is_active = ? AND (valid_until IS NULL OR valid_until > ?)
ORDER BY created_at DESC, id DESC`), true, time.Now().UTC())
	} else {
		err = r.db.SelectContext(ctx, &out, `SELECT `+offerColumns+` FROM special_offers ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveSpecialOffers is List(ctx, true).
func (r *OfferRepository) GetActiveSpecialOffers(ctx context.Context) ([]models.SpecialOffer, error) {
	return r.List(ctx, true)
}

func (r *OfferRepository) Get(ctx context.Context, id int64) (*models.SpecialOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var o models.SpecialOffer
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(`SELECT `+offerColumns+` FROM special_offers WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepository) Create(ctx context.Context, o *models.SpecialOffer) (*models.SpecialOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	o.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO special_offers (title, description, image_url, discount_percent, discount_amount, minimum_order, valid_until, is_active, created_at)
VALUES (?,?,?,?,?,?,?,?,?) RETURNING id`),
		o.Title, o.Description, o.ImageURL, o.DiscountPercent, o.DiscountAmount, o.MinimumOrder, utcPtr(o.ValidUntil), o.IsActive, o.CreatedAt).Scan(&o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Update overwrites every editable column of the offer.
func (r *OfferRepository) Update(ctx context.Context, o *models.SpecialOffer) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
UPDATE special_offers SET title = ?, description = ?, image_url = ?, discount_percent = ?, discount_amount = ?,
  minimum_order = ?, valid_until = ?, is_active = ? WHERE id = ?`),
		o.Title, o.Description, o.ImageURL, o.DiscountPercent, o.DiscountAmount, o.MinimumOrder, utcPtr(o.ValidUntil), o.IsActive, o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *OfferRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM special_offers WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExpireStale deactivates active offers whose valid_until is before now and
// returns how many were switched off.
func (r *OfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
UPDATE special_offers SET is_active = ? WHERE is_active = ? AND valid_until IS NOT NULL AND valid_until <= ?`),
		false, true, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
