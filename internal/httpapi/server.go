package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/metrics"
	"foodDelivery/internal/orders"
	"foodDelivery/repository"
)

const (
	readTimeout       = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Orders      *orders.Service
	Catalog     *repository.CatalogRepository
	Offers      *repository.OfferRepository
	Settings    *repository.SettingsRepository
	Drivers     repository.DriverRepositoryI
	Admins      repository.AdminRepositoryI
	Sessions    *auth.Sessions
	Limiter     *RateLimiter
	CORSOrigins []string
}

type Server struct {
	Router *mux.Router
	deps   Deps
	server *http.Server
}

// SetupRoutes builds the router with every public, admin and driver endpoint.
func SetupRoutes(deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = NewRateLimiter(5, 10)
	}
	s := &Server{Router: mux.NewRouter(), deps: deps}
	r := s.Router
	r.Use(metrics.InstrumentHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// public catalog
	r.HandleFunc("/api/categories", s.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants", s.listRestaurants).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants/{id}", s.getRestaurant).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants/{id}/menu", s.getMenu).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants/{id}/distance", s.restaurantDistance).Methods(http.MethodGet)
	r.HandleFunc("/api/special-offers", s.listOffers).Methods(http.MethodGet)
	r.HandleFunc("/api/search", s.search).Methods(http.MethodGet)
	r.HandleFunc("/api/ui-settings", s.listSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/ui-settings/{key}", s.getSetting).Methods(http.MethodGet)

	// public orders
	r.Handle("/api/orders", s.limited(s.placeOrder)).Methods(http.MethodPost)
	r.HandleFunc("/api/orders/{ref}/track", s.trackOrder).Methods(http.MethodGet)

	// sessions
	r.Handle("/api/admin/login", s.limited(s.adminLogin)).Methods(http.MethodPost)
	r.Handle("/api/driver/login", s.limited(s.driverLogin)).Methods(http.MethodPost)
	r.Handle("/api/admin/logout", s.authed(s.logout)).Methods(http.MethodPost)
	r.Handle("/api/driver/logout", s.authed(s.logout)).Methods(http.MethodPost)
	r.Handle("/api/admin/verify", s.authed(s.verify)).Methods(http.MethodGet)

	// admin: orders
	r.Handle("/api/orders", s.admin(s.listOrders)).Methods(http.MethodGet)
	r.Handle("/api/orders/{id}", s.admin(s.getOrder)).Methods(http.MethodGet)
	r.Handle("/api/orders/{id}", s.admin(s.updateOrder)).Methods(http.MethodPut)
	r.Handle("/api/orders/{id}/status", s.admin(s.setOrderStatus)).Methods(http.MethodPut)
	r.Handle("/api/orders/{id}/advance", s.admin(s.advanceOrder)).Methods(http.MethodPost)
	r.Handle("/api/orders/{id}/cancel", s.admin(s.cancelOrder)).Methods(http.MethodPost)
	r.Handle("/api/orders/{id}/driver", s.admin(s.assignDriver)).Methods(http.MethodPut)

	// admin: drivers, account, dashboard
	r.Handle("/api/admin/drivers", s.admin(s.listDrivers)).Methods(http.MethodGet)
	r.Handle("/api/admin/drivers", s.admin(s.createDriver)).Methods(http.MethodPost)
	r.Handle("/api/admin/drivers/{id}", s.admin(s.getDriver)).Methods(http.MethodGet)
	r.Handle("/api/admin/drivers/{id}", s.admin(s.updateDriver)).Methods(http.MethodPut)
	r.Handle("/api/admin/drivers/{id}", s.admin(s.deleteDriver)).Methods(http.MethodDelete)
	r.Handle("/api/admin/drivers/{id}/stats", s.admin(s.driverStats)).Methods(http.MethodGet)
	r.Handle("/api/admin/stats", s.admin(s.dashboardStats)).Methods(http.MethodGet)
	r.Handle("/api/admin/profile", s.admin(s.updateProfile)).Methods(http.MethodPut)
	r.Handle("/api/admin/change-password", s.admin(s.changePassword)).Methods(http.MethodPut)

	// admin: catalog, offers, settings
	r.Handle("/api/ui-settings/{key}", s.admin(s.putSetting)).Methods(http.MethodPut)
	r.Handle("/api/special-offers", s.admin(s.createOffer)).Methods(http.MethodPost)
	r.Handle("/api/special-offers/{id}", s.admin(s.updateOffer)).Methods(http.MethodPut)
	r.Handle("/api/special-offers/{id}", s.admin(s.deleteOffer)).Methods(http.MethodDelete)
	r.Handle("/api/categories", s.admin(s.createCategory)).Methods(http.MethodPost)
	r.Handle("/api/restaurants", s.admin(s.createRestaurant)).Methods(http.MethodPost)
	r.Handle("/api/restaurants/{id}/menu", s.admin(s.createMenuItem)).Methods(http.MethodPost)

	// driver console
	r.Handle("/api/driver/me", s.driver(s.driverMe)).Methods(http.MethodGet)
	r.Handle("/api/driver/availability", s.driver(s.setAvailability)).Methods(http.MethodPut)
	r.Handle("/api/driver/orders", s.driver(s.myOrders)).Methods(http.MethodGet)
	r.Handle("/api/driver/orders/available", s.driver(s.availableOrders)).Methods(http.MethodGet)
	r.Handle("/api/driver/orders/{id}/accept", s.driver(s.acceptOrder)).Methods(http.MethodPost)
	r.Handle("/api/driver/orders/{id}/status", s.driver(s.driverSetStatus)).Methods(http.MethodPut)

	return s
}

// Handler is the router wrapped with the cross-cutting middleware.
func (s *Server) Handler() http.Handler {
	return recoverPanics(logRequests(cors(s.deps.CORSOrigins)(s.Router)))
}

func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.deps.Limiter.Limit(h)
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return auth.Authenticate(s.deps.Sessions)(h)
}

func (s *Server) withKind(kind string, h http.HandlerFunc) http.Handler {
	return auth.Authenticate(s.deps.Sessions)(
		auth.RoleBasedMiddleware(kind)(
			auth.AccountMiddleware(s.deps.Admins, s.deps.Drivers)(h)))
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.withKind(auth.KindAdmin, h)
}

func (s *Server) driver(h http.HandlerFunc) http.Handler {
	return s.withKind(auth.KindDriver, h)
}

// principal returns the caller; only valid behind authed/admin/driver.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
