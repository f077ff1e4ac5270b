package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/security/middleware"
	"github.com/workorbit/workorbit/internal/service"
)

// DecisionRequest is the approve/reject request body. Department and
// Designation only apply to approvals; Reason only to rejections.
type DecisionRequest struct {
	Department  string `json:"department,omitempty"`
	Designation string `json:"designation,omitempty"`
	Message     string `json:"message,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// JoinRequestView is the wire shape of a join request
type JoinRequestView struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	RequestType      string     `json:"requestType"`
	RequestedRole    string     `json:"requestedRole"`
	RequestedOrgCode string     `json:"requestedOrgCode"`
	RequestedHRCode  string     `json:"requestedHrCode,omitempty"`
	Status           string     `json:"status"`
	ApprovedBy       string     `json:"approvedBy,omitempty"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	ResponseMessage  string     `json:"responseMessage,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// DecisionView is the wire shape of an approve/reject outcome
type DecisionView struct {
	Request    JoinRequestView `json:"request"`
	UserStatus string          `json:"userStatus"`
	EmployeeID string          `json:"employeeId,omitempty"`
	HRCode     string          `json:"hrCode,omitempty"`
}

// HierarchyHandler handles the approval-workflow endpoints
type HierarchyHandler struct {
	hierarchyService *service.HierarchyService
	logger           *slog.Logger
}

// NewHierarchyHandler creates a new hierarchy handler
func NewHierarchyHandler(hierarchyService *service.HierarchyService, logger *slog.Logger) *HierarchyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HierarchyHandler{
		hierarchyService: hierarchyService,
		logger:           logger,
	}
}

// Pending handles GET /api/hierarchy/requests/pending. The acting user's
// role decides the scope: admins see hr_join requests for the organization
// they own, HR managers see staff_join requests addressed to their code.
func (h *HierarchyHandler) Pending(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"success":false,"error":"missing auth"}`, http.StatusUnauthorized)
		return
	}

	requests, err := h.hierarchyService.PendingRequests(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	views := make([]JoinRequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, toJoinRequestView(req))
	}

	writeData(w, http.StatusOK, views)
}

// Approve handles PUT /api/hierarchy/requests/{id}/approve
func (h *HierarchyHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"success":false,"error":"missing auth"}`, http.StatusUnauthorized)
		return
	}

	requestID := r.PathValue("id")
	if requestID == "" {
		writeError(w, h.logger, fmt.Errorf("%w: request id is required", domain.ErrValidation))
		return
	}

	body, ok := h.decodeDecision(w, r)
	if !ok {
		return
	}

	result, err := h.hierarchyService.Approve(r.Context(), requestID, claims.UserID, service.ApproveInput{
		Department:  body.Department,
		Designation: body.Designation,
		Message:     body.Message,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, toDecisionView(result))
}

// Reject handles PUT /api/hierarchy/requests/{id}/reject
func (h *HierarchyHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"success":false,"error":"missing auth"}`, http.StatusUnauthorized)
		return
	}

	requestID := r.PathValue("id")
	if requestID == "" {
		writeError(w, h.logger, fmt.Errorf("%w: request id is required", domain.ErrValidation))
		return
	}

	body, ok := h.decodeDecision(w, r)
	if !ok {
		return
	}

	result, err := h.hierarchyService.Reject(r.Context(), requestID, claims.UserID, body.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, toDecisionView(result))
}

// ValidateOrgCode handles GET /api/hierarchy/validate/org-code/{code}
func (h *HierarchyHandler) ValidateOrgCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	summary, err := h.hierarchyService.ValidateOrgCode(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// ValidateHRCode handles GET /api/hierarchy/validate/hr-code/{code}
func (h *HierarchyHandler) ValidateHRCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	summary, err := h.hierarchyService.ValidateHRCode(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// decodeDecision tolerates an empty body: approvals and rejections are
// valid with all-default fields.
func (h *HierarchyHandler) decodeDecision(w http.ResponseWriter, r *http.Request) (DecisionRequest, bool) {
	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		h.logger.Error("failed to decode decision request", slog.String("error", err.Error()))
		writeError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return body, false
	}
	return body, true
}

func toJoinRequestView(req *domain.JoinRequest) JoinRequestView {
	return JoinRequestView{
		ID:               req.ID,
		UserID:           req.UserID,
		RequestType:      string(req.RequestType),
		RequestedRole:    string(req.RequestedRole),
		RequestedOrgCode: req.RequestedOrgCode,
		RequestedHRCode:  req.RequestedHRCode,
		Status:           string(req.Status),
		ApprovedBy:       req.ApprovedBy,
		RespondedAt:      req.RespondedAt,
		ResponseMessage:  req.ResponseMessage,
		CreatedAt:        req.CreatedAt,
	}
}

func toDecisionView(result *service.DecisionResult) DecisionView {
	view := DecisionView{
		Request:    toJoinRequestView(result.Request),
		UserStatus: string(result.User.Status),
		EmployeeID: result.User.EmployeeID,
	}
	if result.Request.RequestedRole == domain.RoleHR {
		view.HRCode = result.User.HRCode
	}
	return view
}
