package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/service"
)

// RegisterRequest carries the shared registration fields; OrganizationName,
// OrgCode, HRCode and RequestedRole are each meaningful for exactly one of
// the three registration endpoints.
type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organizationName,omitempty"`
	OrgCode          string `json:"orgCode,omitempty"`
	HRCode           string `json:"hrCode,omitempty"`
	RequestedRole    string `json:"requestedRole,omitempty"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler handles registration and login endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterAdmin handles POST /api/auth/register-admin
func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegister(w, r)
	if !ok {
		return
	}
	if req.OrganizationName == "" {
		writeError(w, h.logger, fmt.Errorf("%w: organizationName is required", domain.ErrValidation))
		return
	}

	result, err := h.authService.RegisterAdmin(r.Context(), req.Name, req.Email, req.Password, req.OrganizationName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, result)
}

// RegisterHR handles POST /api/auth/register-hr
func (h *AuthHandler) RegisterHR(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegister(w, r)
	if !ok {
		return
	}
	if req.OrgCode == "" {
		writeError(w, h.logger, fmt.Errorf("%w: orgCode is required", domain.ErrValidation))
		return
	}

	result, err := h.authService.RegisterHR(r.Context(), req.Name, req.Email, req.Password, req.OrgCode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, result)
}

// RegisterStaff handles POST /api/auth/register-staff
func (h *AuthHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegister(w, r)
	if !ok {
		return
	}
	if req.HRCode == "" {
		writeError(w, h.logger, fmt.Errorf("%w: hrCode is required", domain.ErrValidation))
		return
	}

	role := domain.Role(req.RequestedRole)
	if role == "" {
		role = domain.RoleEmployee
	}
	if role != domain.RoleManager && role != domain.RoleEmployee {
		writeError(w, h.logger, fmt.Errorf("%w: requestedRole must be manager or employee", domain.ErrValidation))
		return
	}

	result, err := h.authService.RegisterStaff(r.Context(), req.Name, req.Email, req.Password, req.HRCode, role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, h.logger, fmt.Errorf("%w: email and password are required", domain.ErrValidation))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (h *AuthHandler) decodeRegister(w http.ResponseWriter, r *http.Request) (RegisterRequest, bool) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return req, false
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, h.logger, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation))
		return req, false
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, h.logger, fmt.Errorf("%w: email is malformed", domain.ErrValidation))
		return req, false
	}

	return req, true
}
