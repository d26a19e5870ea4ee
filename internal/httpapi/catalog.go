package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"foodDelivery/internal/geo"
	"foodDelivery/models"
	"foodDelivery/repository"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Catalog.ListCategories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in models.Category
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		fail(w, r, badRequest("name is required"))
		return
	}
	in.IsActive = true
	c, err := s.deps.Catalog.CreateCategory(r.Context(), &in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listRestaurants(w http.ResponseWriter, r *http.Request) {
	f := repository.RestaurantFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(w, r, badRequest("invalid categoryId %q", raw))
			return
		}
		f.CategoryID = &id
	}
	rs, err := s.deps.Catalog.ListRestaurants(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) restaurant(r *http.Request) (*models.Restaurant, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	rest, err := s.deps.Catalog.GetRestaurant(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if rest == nil || !rest.IsActive {
		return nil, errNotFound
	}
	return rest, nil
}

func (s *Server) getRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := s.restaurant(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	rest, err := s.restaurant(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	menu, err := s.deps.Catalog.GetMenu(r.Context(), rest.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (s *Server) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var in models.Restaurant
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		fail(w, r, badRequest("name is required"))
		return
	}
	if in.DeliveryFee < 0 || in.MinimumOrder < 0 {
		fail(w, r, badRequest("fees must not be negative"))
		return
	}
	in.IsActive = true
	rest, err := s.deps.Catalog.CreateRestaurant(r.Context(), &in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rest)
}

func (s *Server) createMenuItem(w http.ResponseWriter, r *http.Request) {
	rest, err := s.restaurant(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in models.MenuItem
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" || in.Price < 0 {
		fail(w, r, badRequest("name is required and price must not be negative"))
		return
	}
	in.RestaurantID = rest.ID
	item, err := s.deps.Catalog.CreateMenuItem(r.Context(), &in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type distanceResponse struct {
	RestaurantID int64   `json:"restaurantId"`
	DistanceKm   float64 `json:"distanceKm"`
}

func (s *Server) restaurantDistance(w http.ResponseWriter, r *http.Request) {
	rest, err := s.restaurant(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	lat, err := queryFloat(r, "lat")
	if err != nil {
		fail(w, r, err)
		return
	}
	lng, err := queryFloat(r, "lng")
	if err != nil {
		fail(w, r, err)
		return
	}
	if !geo.ValidCoordinates(lat, lng) {
		fail(w, r, badRequest("coordinates out of range"))
		return
	}
	if rest.Latitude == nil || rest.Longitude == nil {
		fail(w, r, badRequest("restaurant has no location"))
		return
	}
	km := geo.HaversineKm(*rest.Latitude, *rest.Longitude, lat, lng)
	writeJSON(w, http.StatusOK, distanceResponse{RestaurantID: rest.ID, DistanceKm: math.Round(km*100) / 100})
}

type searchResponse struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Categories  []models.Category   `json:"categories"`
	MenuItems   []models.MenuItem   `json:"menuItems"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		fail(w, r, badRequest("q is required"))
		return
	}
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = "all"
	}
	out := searchResponse{Restaurants: []models.Restaurant{}, Categories: []models.Category{}, MenuItems: []models.MenuItem{}}
	var err error
	switch typ {
	case "all", "restaurants", "categories", "menu":
	default:
		fail(w, r, badRequest("unknown search type %q", typ))
		return
	}
	ctx := r.Context()
	if typ == "all" || typ == "restaurants" {
		if out.Restaurants, err = s.deps.Catalog.SearchRestaurants(ctx, q); err != nil {
			fail(w, r, err)
			return
		}
	}
	if typ == "all" || typ == "categories" {
		if out.Categories, err = s.deps.Catalog.SearchCategories(ctx, q); err != nil {
			fail(w, r, err)
			return
		}
	}
	if typ == "all" || typ == "menu" {
		if out.MenuItems, err = s.deps.Catalog.SearchMenuItems(ctx, q); err != nil {
			fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") != "false"
	offers, err := s.deps.Offers.List(r.Context(), activeOnly)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

type offerInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ImageURL        string     `json:"imageUrl"`
	DiscountPercent *float64   `json:"discountPercent"`
	DiscountAmount  *float64   `json:"discountAmount"`
	MinimumOrder    float64    `json:"minimumOrder"`
	ValidUntil      *time.Time `json:"validUntil"`
	IsActive        *bool      `json:"isActive"`
}

func (in offerInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return badRequest("title is required")
	}
	if (in.DiscountPercent == nil) == (in.DiscountAmount == nil) {
		return badRequest("exactly one of discountPercent or discountAmount is required")
	}
	if in.DiscountPercent != nil && (*in.DiscountPercent <= 0 || *in.DiscountPercent > 100) {
		return badRequest("discountPercent must be in (0, 100]")
	}
	if in.DiscountAmount != nil && *in.DiscountAmount <= 0 {
		return badRequest("discountAmount must be positive")
	}
	if in.MinimumOrder < 0 {
		return badRequest("minimumOrder must not be negative")
	}
	return nil
}

func (in offerInput) apply(o *models.SpecialOffer) {
	o.Title = strings.TrimSpace(in.Title)
	o.Description = in.Description
	o.ImageURL = in.ImageURL
	o.DiscountPercent = in.DiscountPercent
	o.DiscountAmount = in.DiscountAmount
	o.MinimumOrder = in.MinimumOrder
	o.ValidUntil = in.ValidUntil
	if in.IsActive != nil {
		o.IsActive = *in.IsActive
	}
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	var in offerInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		fail(w, r, err)
		return
	}
	o := &models.SpecialOffer{IsActive: true}
	in.apply(o)
	created, err := s.deps.Offers.Create(r.Context(), o)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Offers.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if o == nil {
		fail(w, r, errNotFound)
		return
	}
	var in offerInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		fail(w, r, err)
		return
	}
	in.apply(o)
	if err := s.deps.Offers.Update(r.Context(), o); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) deleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.deps.Offers.Delete(r.Context(), id); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.deps.Settings.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		fail(w, r, err)
		return
	}
	if setting == nil {
		fail(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(mux.Vars(r)["key"])
	var in struct {
		Value       *string `json:"value"`
		Description string  `json:"description"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if key == "" || in.Value == nil {
		fail(w, r, badRequest("value is required"))
		return
	}
	setting, err := s.deps.Settings.Upsert(r.Context(), key, *in.Value, in.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
