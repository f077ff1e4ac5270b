package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/notification"
	"github.com/workorbit/workorbit/internal/security/auth"
)

// NotificationsHandler handles WebSocket subscriptions to the event feed.
// Browsers cannot set headers on the upgrade request, so the bearer token
// travels as a ?token= query parameter instead.
type NotificationsHandler struct {
	hub            *notification.Hub
	tokenManager   *auth.TokenManager
	logger         *slog.Logger
	allowedOrigins []string
}

// NewNotificationsHandler creates a new notifications handler
func NewNotificationsHandler(hub *notification.Hub, tokenManager *auth.TokenManager, logger *slog.Logger, allowedOrigins []string) *NotificationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationsHandler{
		hub:            hub,
		tokenManager:   tokenManager,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *NotificationsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed || allowed == "*" {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/notifications
func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, `{"success":false,"error":"missing token"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenManager.ValidateToken(tokenString)
	if err != nil {
		h.logger.Warn("websocket token rejected", slog.String("error", err.Error()))
		http.Error(w, `{"success":false,"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	// The feed carries decision and lockout events; only approvers need it.
	switch domain.Role(claims.Role) {
	case domain.RoleAdmin, domain.RoleHR:
	default:
		http.Error(w, `{"success":false,"error":"insufficient role"}`, http.StatusForbidden)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	detach := h.hub.Register(ws, claims.OrganizationID)
	defer detach()

	h.logger.Info("notification subscriber connected",
		slog.String("user_id", claims.UserID),
		slog.String("organization_id", claims.OrganizationID),
	)

	// Drain the connection until the client goes away. Subscribers never
	// send data; the read loop only exists to observe the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.logger.Debug("notification subscriber disconnected",
		slog.String("user_id", claims.UserID),
	)
}
