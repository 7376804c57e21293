// Package httpapi serves the draw engine, the user registry and the admin
// operations over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/xtding233/giftdraw/internal/admin"
	"github.com/xtding233/giftdraw/internal/broadcast"
	"github.com/xtding233/giftdraw/internal/delivery"
	"github.com/xtding233/giftdraw/internal/gacha"
	"github.com/xtding233/giftdraw/internal/platform/metrics"
	"github.com/xtding233/giftdraw/internal/pricing"
	"github.com/xtding233/giftdraw/internal/users"
)

// MaxMultiDraw caps one multi-draw request.
const MaxMultiDraw = 10

const maxBodyBytes = 1 << 16

// Deliverer hands a drawn gift to the player.
type Deliverer interface {
	Deliver(ctx context.Context, playerID string, item gacha.ItemSpec) delivery.Outcome
}

// Deps wires the server. Delivery, Broadcaster and Metrics are optional.
type Deps struct {
	Engine          *gacha.Engine
	Users           *users.Registry
	Admin           *admin.Service
	Auth            *admin.Auth
	Broadcaster     *broadcast.Broadcaster
	Delivery        Deliverer
	DeliveryTimeout time.Duration
	Metrics         *metrics.Metrics
	Log             logrus.FieldLogger
}

// Server holds the handlers.
type Server struct {
	deps    Deps
	quotes  pricing.Report
	pending sync.WaitGroup
}

func New(deps Deps) *Server {
	if deps.DeliveryTimeout <= 0 {
		deps.DeliveryTimeout = 30 * time.Second
	}
	return &Server{deps: deps, quotes: pricing.Build(deps.Engine.Rules())}
}

// Router builds the mux with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/draws", s.handleDraw).Methods(http.MethodPost)
	v1.HandleFunc("/draws/multi", s.handleMultiDraw).Methods(http.MethodPost)
	v1.HandleFunc("/players/{id}/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/tiers", s.handleTiers).Methods(http.MethodGet)
	v1.HandleFunc("/tiers/plan", s.handlePlan).Methods(http.MethodGet)
	v1.HandleFunc("/users", s.handleAddUser).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}", s.handleRemoveUser).Methods(http.MethodDelete)

	adm := v1.PathPrefix("/admin").Subrouter()
	adm.Use(s.requireAdmin)
	adm.HandleFunc("/stats", s.handleAdminStats).Methods(http.MethodGet)
	adm.HandleFunc("/users", s.handleAdminUsers).Methods(http.MethodGet)
	adm.HandleFunc("/broadcast/arm", s.handleArmBroadcast).Methods(http.MethodPost)
	adm.HandleFunc("/broadcast", s.handleBroadcast).Methods(http.MethodPost)
	return r
}

// Wait blocks until background gift deliveries finish.
func (s *Server) Wait() { s.pending.Wait() }

type errResp struct {
	Err string `json:"err"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Err: msg})
}

// statusFor maps engine and auth errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gacha.ErrInvalidTier), errors.Is(err, gacha.ErrInvalidPlayer):
		return http.StatusBadRequest
	case errors.Is(err, gacha.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, gacha.ErrMalformedWeightTable):
		return http.StatusInternalServerError
	case errors.Is(err, admin.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.deps.Log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeErr(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseInt(r *http.Request, key string) (int64, bool, string) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false, ""
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return n, true, ""
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if err := s.deps.Auth.Check(adminID(r), token); err != nil {
			writeErr(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func adminID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Admin-ID"))
}
