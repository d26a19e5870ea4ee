package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/models"
)

const (
	restaurantColumns = `id, name, description, category_id, image_url, address, phone, rating, delivery_time,
delivery_fee, minimum_order, is_open, is_active, latitude, longitude, created_at`
	menuItemColumns = `id, restaurant_id, name, description, price, image_url, category, is_available, created_at`
	searchLimit     = 20
)

// RestaurantFilter narrows ListRestaurants. Zero values mean "no filter".
type RestaurantFilter struct {
	CategoryID *int64
	Search     string
}

// CatalogRepository serves categories, restaurants and menu items.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories returns active categories in display order.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.Category{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT id, name, icon, is_active, sort_order FROM categories WHERE is_active = ? ORDER BY sort_order, name`), true)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO categories (name, icon, is_active, sort_order) VALUES (?,?,?,?) RETURNING id`),
		c.Name, c.Icon, c.IsActive, c.SortOrder).Scan(&c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListRestaurants returns active restaurants, optionally by category and name/description substring.
func (r *CatalogRepository) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	where := []string{"is_active = ?"}
	args := []any{true}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		p := likePattern(s)
		args = append(args, p, p)
	}
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE ` + strings.Join(where, " AND ") + ` ORDER BY rating DESC, name`
	out := []models.Restaurant{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var rest models.Restaurant
	if err := r.db.GetContext(ctx, &rest, r.db.Rebind(`SELECT `+restaurantColumns+` FROM restaurants WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rest, nil
}

func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *models.Restaurant) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rest.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO restaurants (name, description, category_id, image_url, address, phone, rating, delivery_time,
  delivery_fee, minimum_order, is_open, is_active, latitude, longitude, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		rest.Name, rest.Description, rest.CategoryID, rest.ImageURL, rest.Address, rest.Phone, rest.Rating, rest.DeliveryTime,
		rest.DeliveryFee, rest.MinimumOrder, rest.IsOpen, rest.IsActive, rest.Latitude, rest.Longitude, rest.CreatedAt).Scan(&rest.ID)
	if err != nil {
		return nil, err
	}
	return rest, nil
}

// GetMenu returns a restaurant's menu items, available ones first.
func (r *CatalogRepository) GetMenu(ctx context.Context, restaurantID int64) ([]models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.MenuItem{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+menuItemColumns+` FROM menu_items WHERE restaurant_id = ? ORDER BY is_available DESC, category, name`), restaurantID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CatalogRepository) CreateMenuItem(ctx context.Context, m *models.MenuItem) (*models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	m.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO menu_items (restaurant_id, name, description, price, image_url, category, is_available, created_at)
VALUES (?,?,?,?,?,?,?,?) RETURNING id`),
		m.RestaurantID, m.Name, m.Description, m.Price, m.ImageURL, m.Category, m.IsAvailable, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SearchRestaurants matches active restaurants by name or description substring.
func (r *CatalogRepository) SearchRestaurants(ctx context.Context, q string) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	p := likePattern(q)
	out := []models.Restaurant{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+restaurantColumns+` FROM restaurants
WHERE is_active = ? AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)
ORDER BY rating DESC, name LIMIT ?`), true, p, p, searchLimit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchCategories matches active categories by name substring.
func (r *CatalogRepository) SearchCategories(ctx context.Context, q string) ([]models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.Category{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT id, name, icon, is_active, sort_order FROM categories
WHERE is_active = ? AND LOWER(name) LIKE ? ORDER BY sort_order, name LIMIT ?`), true, likePattern(q), searchLimit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchMenuItems matches available menu items by name, description or menu section.
func (r *CatalogRepository) SearchMenuItems(ctx context.Context, q string) ([]models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	p := likePattern(q)
	out := []models.MenuItem{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+menuItemColumns+` FROM menu_items
WHERE is_available = ? AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?)
ORDER BY name LIMIT ?`), true, p, p, p, searchLimit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// likePattern builds a lower-cased substring pattern. Wildcards typed by the user are
// matched literally by the caller's LIKE only in so far as the dialect allows; the
// search is a convenience filter, not an exact match.
func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}
