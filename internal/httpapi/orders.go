package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"foodDelivery/internal/orders"
	"foodDelivery/models"
	"foodDelivery/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Orders.Place(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) trackOrder(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Orders.Track(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func orderFilter(r *http.Request) (repository.OrderFilter, error) {
	q := r.URL.Query()
	f := repository.OrderFilter{Limit: defaultListLimit}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := models.ParseOrderStatus(strings.TrimSpace(part))
			if err != nil {
				return f, badRequest("%v", err)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := q.Get("driverId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, badRequest("invalid driverId %q", raw)
		}
		f.DriverID = &id
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, badRequest("invalid limit %q", raw)
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, badRequest("invalid offset %q", raw)
		}
		f.Offset = n
	}
	return f, nil
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := s.deps.Orders.List(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Orders.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type updateOrderRequest struct {
	CustomerName    *string  `json:"customerName"`
	CustomerPhone   *string  `json:"customerPhone"`
	CustomerEmail   *string  `json:"customerEmail"`
	DeliveryAddress *string  `json:"deliveryAddress"`
	Notes           *string  `json:"notes"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	PaymentStatus   *string  `json:"paymentStatus"`
	Status          *string  `json:"status"`
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	patch := repository.OrderDetailsPatch{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PaymentStatus:   req.PaymentStatus,
	}
	o, err := s.deps.Orders.UpdateDetails(r.Context(), id, patch, req.Status, adminActor(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Orders.SetStatus(r.Context(), id, req.Status, adminActor(r), strings.TrimSpace(req.Message))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Orders.Advance(r.Context(), id, adminActor(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			fail(w, r, err)
			return
		}
	}
	o, err := s.deps.Orders.Cancel(r.Context(), id, adminActor(r), strings.TrimSpace(req.Reason))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) assignDriver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req struct {
		DriverID int64 `json:"driverId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.DriverID <= 0 {
		fail(w, r, badRequest("driverId is required"))
		return
	}
	o, err := s.deps.Orders.AssignDriver(r.Context(), id, req.DriverID, adminActor(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Orders.Stats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func adminActor(r *http.Request) orders.Actor {
	return orders.AdminActor(principal(r).ID)
}
