package chat

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftelle/carechat/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("patient", "clinician", "staff")

	read := api.Group("", role)
	read.GET("/chat/conversations/:userId", h.ListConversations)
	read.GET("/chat/unread/:userId", h.UnreadCount)
}

// ListConversations returns the caller's conversation summaries, most
// recently active first.
func (h *Handler) ListConversations(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}
	summaries, err := h.svc.ConversationsFor(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversations")
	}
	return c.JSON(http.StatusOK, summaries)
}

// UnreadCount returns the total number of unread messages addressed to the
// user across all conversations.
func (h *Handler) UnreadCount(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}
	count, err := h.svc.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count unread messages")
	}
	return c.JSON(http.StatusOK, map[string]int{"unreadCount": count})
}
