package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/cart"
	"pharmalink/m/internal/checkout"
	"pharmalink/m/internal/discount"
	"pharmalink/m/internal/store"
)

type ctxKey string

const (
	ctxUserID    ctxKey = "userID"
	ctxRole      ctxKey = "role"
	ctxCompanyID ctxKey = "companyID"
)

// Options tunes a Handler. Zero values fall back to defaults.
type Options struct {
	Secret      string
	TokenTTL    time.Duration
	CORSOrigins []string
	RuleTTL     time.Duration
	Clock       func() time.Time
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	secret  string
	ttl     time.Duration
	origins []string
	now     func() time.Time
	logger  *zap.Logger

	users         *store.UserStore
	companies     *store.CompanyStore
	medicines     *store.MedicineStore
	rules         *store.RuleStore
	ruleCache     *store.RuleCache
	orders        *store.OrderStore
	notifications *store.NotificationStore
	checkout      *checkout.Service
}

// New constructs a Handler.
func New(db *sqlx.DB, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.RuleTTL <= 0 {
		opts.RuleTTL = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	h := &Handler{
		secret:        opts.Secret,
		ttl:           opts.TokenTTL,
		origins:       opts.CORSOrigins,
		now:           opts.Clock,
		logger:        logger,
		users:         store.NewUserStore(db),
		companies:     store.NewCompanyStore(db),
		medicines:     store.NewMedicineStore(db),
		rules:         store.NewRuleStore(db),
		orders:        store.NewOrderStore(db),
		notifications: store.NewNotificationStore(db),
	}
	h.ruleCache = store.NewRuleCache(h.rules, opts.RuleTTL)

	engine := discount.NewEngine(discount.WithLogger(logger.Named("discount")), discount.WithClock(opts.Clock))
	h.checkout = checkout.New(h.companies, h.medicines, h.ruleCache, h.orders, h.notifications, engine, logger.Named("checkout"))
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/companies", func(r chi.Router) {
			r.Get("/", h.listCompanies)
			r.Get("/{id}", h.getCompany)
			r.Get("/{id}/medicines", h.searchMedicines)
		})

		pr.Route("/medicines", func(r chi.Router) {
			r.Post("/", h.createMedicine)
			r.Post("/import", h.importMedicines)
			r.Get("/export", h.exportMedicines)
			r.Get("/alerts", h.medicineAlerts)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
		})

		pr.Route("/discounts", func(r chi.Router) {
			r.Get("/", h.listDiscounts)
			r.Post("/", h.createDiscount)
			r.Put("/{id}", h.updateDiscount)
			r.Post("/{id}/toggle", h.toggleDiscount)
			r.Delete("/{id}", h.deleteDiscount)
		})

		pr.Route("/orders", func(r chi.Router) {
			r.Post("/quote", h.quoteOrder)
			r.Get("/reports", h.orderReports)
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
		})

		pr.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.listNotifications)
			r.Post("/{id}/read", h.markNotificationRead)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// Authentication helpers

type authClaims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	CompanyID int64  `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(user domain.User) (string, error) {
	claims := authClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if user.CompanyID != nil {
		claims.CompanyID = *user.CompanyID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		ctx = context.WithValue(ctx, ctxCompanyID, claims.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// requireCompany checks for a company account and returns the company it owns.
func (h *Handler) requireCompany(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if !h.requireRole(w, r, domain.RoleCompany) {
		return 0, false
	}
	id := companyIDFromContext(r)
	if id <= 0 {
		respondError(w, http.StatusForbidden, "user is not linked to a company")
		return 0, false
	}
	return id, true
}

func userIDFromContext(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxUserID).(int64)
	return id
}

func roleFromContext(r *http.Request) string {
	role, _ := r.Context().Value(ctxRole).(string)
	return role
}

func companyIDFromContext(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxCompanyID).(int64)
	return id
}

// Helpers

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func idParam(r *http.Request, name string) domain.ID {
	return domain.ID(chi.URLParam(r, name)).Canonical()
}

// respondFailure maps domain and store errors onto HTTP statuses.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrOutOfStock),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, cart.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidPrice),
		errors.Is(err, cart.ErrUnknownMedicine),
		errors.Is(err, checkout.ErrPaymentMethodRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
