package models

import "time"

type Category struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Icon      string `db:"icon" json:"icon"`
	IsActive  bool   `db:"is_active" json:"isActive"`
	SortOrder int    `db:"sort_order" json:"sortOrder"`
}

type Restaurant struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	CategoryID   *int64    `db:"category_id" json:"categoryId,omitempty"`
	ImageURL     string    `db:"image_url" json:"imageUrl"`
	Address      string    `db:"address" json:"address"`
	Phone        string    `db:"phone" json:"phone"`
	Rating       float64   `db:"rating" json:"rating"`
	DeliveryTime string    `db:"delivery_time" json:"deliveryTime"`
	DeliveryFee  float64   `db:"delivery_fee" json:"deliveryFee"`
	MinimumOrder float64   `db:"minimum_order" json:"minimumOrder"`
	IsOpen       bool      `db:"is_open" json:"isOpen"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	Latitude     *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type MenuItem struct {
	ID           int64     `db:"id" json:"id"`
	RestaurantID int64     `db:"restaurant_id" json:"restaurantId"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Price        float64   `db:"price" json:"price"`
	ImageURL     string    `db:"image_url" json:"imageUrl"`
	Category     string    `db:"category" json:"category"`
	IsAvailable  bool      `db:"is_available" json:"isAvailable"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// SpecialOffer is a percentage or fixed-amount discount with an optional expiry
// and minimum-order threshold.
type SpecialOffer struct {
	ID              int64      `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ImageURL        string     `db:"image_url" json:"imageUrl"`
	DiscountPercent *float64   `db:"discount_percent" json:"discountPercent,omitempty"`
	DiscountAmount  *float64   `db:"discount_amount" json:"discountAmount,omitempty"`
	MinimumOrder    float64    `db:"minimum_order" json:"minimumOrder"`
	ValidUntil      *time.Time `db:"valid_until" json:"validUntil,omitempty"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// Applicable reports whether the offer can be used for subtotal at now.
func (o *SpecialOffer) Applicable(subtotal float64, now time.Time) bool {
	if o == nil || !o.IsActive {
		return false
	}
	if o.ValidUntil != nil && now.After(*o.ValidUntil) {
		return false
	}
	return subtotal >= o.MinimumOrder
}

// DiscountFor returns the discount on subtotal, never more than subtotal.
func (o *SpecialOffer) DiscountFor(subtotal float64) float64 {
	var d float64
	switch {
	case o.DiscountPercent != nil:
		d = subtotal * *o.DiscountPercent / 100
	case o.DiscountAmount != nil:
		d = *o.DiscountAmount
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}

// UISetting is a key/value knob read by the client application.
type UISetting struct {
	Key         string    `db:"setting_key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description string    `db:"description" json:"description"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
