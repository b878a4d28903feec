// Package api exposes the bridge's HTTP facade: four endpoints over the
// Session Manager, nothing else. Handlers never touch the PN532 controller
// directly; they only read and write session state.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nfcbridge/core/internal/session"
)

// SessionCreator is the subset of *session.Manager the facade depends on,
// kept narrow so handler tests can fake it without a real controller.
type SessionCreator interface {
	CreateSession(orderID, receiptURL string) (*session.Session, error)
	GetSession(id string) (*session.Session, bool)
	ListSessions() []*session.Session
	Stats() session.Stats
}

// SetupRoutes registers the bridge's four endpoints on app.
func SetupRoutes(app *fiber.App, mgr SessionCreator, log *zap.SugaredLogger) {
	h := &handler{mgr: mgr, log: log}

	app.Post("/api/nfc/sessions", h.createSession)
	app.Get("/api/nfc/sessions/:sessionId", h.getSession)
	app.Get("/api/nfc/sessions", h.listSessions)
	app.Get("/api/health", h.health)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
}

type handler struct {
	mgr SessionCreator
	log *zap.SugaredLogger
}

type createSessionRequest struct {
	OrderID    string `json:"orderId"`
	ReceiptURL string `json:"receiptUrl"`
}

type sessionResponse struct {
	ExpiresAt string `json:"expiresAt"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

func (h *handler) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "orderId is required"})
	}
	if req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "orderId is required"})
	}

	s, err := h.mgr.CreateSession(req.OrderID, req.ReceiptURL)
	if err != nil {
		h.log.Errorw("failed to create session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error", "message": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		SessionID: s.ID,
		Status:    string(s.Status),
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
		Message:   "NFC session created",
	})
}

func (h *handler) getSession(c *fiber.Ctx) error {
	id := c.Params("sessionId")
	s, ok := h.mgr.GetSession(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	resp := sessionResponse{
		SessionID: s.ID,
		Status:    string(s.Status),
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
	if s.Error != "" {
		resp.Message = s.Error
	}
	return c.JSON(resp)
}

type sessionSummary struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

func (h *handler) listSessions(c *fiber.Ctx) error {
	sessions := h.mgr.ListSessions()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			SessionID: s.ID,
			OrderID:   s.OrderID,
			Status:    string(s.Status),
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
			ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"total":    len(summaries),
		"sessions": summaries,
	})
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"sessions":  h.mgr.Stats(),
	})
}
