package api

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pharmalink/m/domain"
	"pharmalink/m/internal/store"
)

type registerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	CompanyName    string `json:"company_name,omitempty"`
	CompanyPhone   string `json:"company_phone,omitempty"`
	CompanyAddress string `json:"company_address,omitempty"`
	SupplierType   string `json:"supplier_type,omitempty"`
}

type authResponse struct {
	Token   string          `json:"token"`
	User    domain.User     `json:"user"`
	Company *domain.Company `json:"company,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "name, email, password and role are required")
		return
	}
	if req.Role != domain.RolePharmacy && req.Role != domain.RoleCompany {
		respondError(w, http.StatusBadRequest, "role must be pharmacy or company")
		return
	}

	var company *domain.Company
	if req.Role == domain.RoleCompany {
		if strings.TrimSpace(req.CompanyName) == "" {
			respondError(w, http.StatusBadRequest, "company_name is required for companies")
			return
		}
		supplierType := req.SupplierType
		if supplierType == "" {
			supplierType = domain.SupplierCompany
		}
		if supplierType != domain.SupplierCompany && supplierType != domain.SupplierWarehouse {
			respondError(w, http.StatusBadRequest, "supplier_type must be company or warehouse")
			return
		}
		company = &domain.Company{
			Name:    strings.TrimSpace(req.CompanyName),
			Type:    supplierType,
			Phone:   req.CompanyPhone,
			Address: req.CompanyAddress,
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	user, company, err := h.users.Register(r.Context(), domain.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     req.Role,
	}, company)
	if errors.Is(err, store.ErrConflict) {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user, Company: company})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), userIDFromContext(r), hashed); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
