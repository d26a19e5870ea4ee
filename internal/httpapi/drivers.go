package httpapi

import (
	"net/http"
	"strings"

	"foodDelivery/internal/auth"
	"foodDelivery/models"
)

type driverInput struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Password        string  `json:"password"`
	IsAvailable     *bool   `json:"isAvailable"`
	IsActive        *bool   `json:"isActive"`
	CurrentLocation *string `json:"currentLocation"`
}

func (s *Server) listDrivers(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Drivers.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if ds == nil {
		ds = []models.Driver{}
	}
	writeJSON(w, http.StatusOK, ds)
}

// phoneTaken reports whether another driver already logs in with phone.
func (s *Server) phoneTaken(r *http.Request, phone string, self int64) (bool, error) {
	other, err := s.deps.Drivers.GetByPhone(r.Context(), phone)
	if err != nil {
		return false, err
	}
	return other != nil && other.ID != self, nil
}

func (s *Server) createDriver(w http.ResponseWriter, r *http.Request) {
	var in driverInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	in.Name, in.Phone = strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone)
	if in.Name == "" || in.Phone == "" {
		fail(w, r, badRequest("name and phone are required"))
		return
	}
	if len(in.Password) < auth.MinPasswordLength {
		fail(w, r, badRequest("password must be at least %d characters", auth.MinPasswordLength))
		return
	}
	taken, err := s.phoneTaken(r, in.Phone, 0)
	if err != nil {
		fail(w, r, err)
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "phone already registered")
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	d := &models.Driver{Name: in.Name, Phone: in.Phone, PasswordHash: hash, IsActive: true, CurrentLocation: in.CurrentLocation}
	if in.IsAvailable != nil {
		d.IsAvailable = *in.IsAvailable
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	created, err := s.deps.Drivers.Create(r.Context(), d)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) loadDriver(r *http.Request) (*models.Driver, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	d, err := s.deps.Drivers.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errNotFound
	}
	return d, nil
}

func (s *Server) getDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDriver(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDriver(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in driverInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if in.Password != "" {
		if len(in.Password) < auth.MinPasswordLength {
			fail(w, r, badRequest("password must be at least %d characters", auth.MinPasswordLength))
			return
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			fail(w, r, err)
			return
		}
		d.PasswordHash = hash
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		d.Name = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" && phone != d.Phone {
		taken, err := s.phoneTaken(r, phone, d.ID)
		if err != nil {
			fail(w, r, err)
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "phone already registered")
			return
		}
		d.Phone = phone
	}
	if in.IsAvailable != nil {
		d.IsAvailable = *in.IsAvailable
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if in.CurrentLocation != nil {
		d.CurrentLocation = in.CurrentLocation
	}
	if err := s.deps.Drivers.Update(r.Context(), d); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDriver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.deps.Drivers.Delete(r.Context(), id); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) driverStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	st, err := s.deps.Drivers.Stats(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if st == nil {
		fail(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// driver console

func (s *Server) driverMe(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Drivers.GetByID(r.Context(), principal(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if d == nil {
		fail(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.IsAvailable == nil {
		fail(w, r, badRequest("isAvailable is required"))
		return
	}
	id := principal(r).ID
	if err := s.deps.Drivers.SetAvailability(r.Context(), id, *req.IsAvailable); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	s.driverMe(w, r)
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Orders.DriverOrders(r.Context(), principal(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) availableOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Orders.AvailableOrders(r.Context(), principal(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) acceptOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := s.deps.Orders.Accept(r.Context(), principal(r).ID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) driverSetStatus(w http.ResponseWriter, r *http.Request) {
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
	o, err := s.deps.Orders.DriverSetStatus(r.Context(), principal(r).ID, id, req.Status, strings.TrimSpace(req.Message))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
