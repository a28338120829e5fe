package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/revledger/revledger-backend/internal/amqp"
	"github.com/dafibh/revledger/revledger-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// InvoiceEventBodyLimit bounds webhook payloads; larger requests get 413
const InvoiceEventBodyLimit = "1M"

// InvoiceEventHandler accepts invoice lifecycle events over HTTP
type InvoiceEventHandler struct {
	eventService *service.RevenueEventService
}

// NewInvoiceEventHandler creates a new InvoiceEventHandler
func NewInvoiceEventHandler(eventService *service.RevenueEventService) *InvoiceEventHandler {
	return &InvoiceEventHandler{
		eventService: eventService,
	}
}

// Receive handles POST /api/v1/invoice-events.
// Events that fail to apply are dead-lettered and still answered with 202.
// @Summary Deliver an invoice lifecycle event
// @Tags invoice-events
// @Accept json
// @Produce json
// @Param event body amqp.InvoiceEventMessage true "Invoice event"
// @Success 202 {object} domain.EventResult
// @Failure 400 {object} ProblemDetails
// @Router /invoice-events [post]
func (h *InvoiceEventHandler) Receive(c echo.Context) error {
	var msg amqp.InvoiceEventMessage
	if err := c.Bind(&msg); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge {
			return err
		}
		return NewValidationError(c, "Invalid request body", nil)
	}

	event, err := msg.ToEvent()
	if err != nil {
		return NewValidationError(c, err.Error(), []ValidationError{
			{Field: "invoice", Message: "invoice snapshot is required"},
		})
	}

	result := h.eventService.Handle(c.Request().Context(), event)

	log.Debug().
		Str("event_id", result.EventID).
		Str("type", string(event.Kind)).
		Str("outcome", string(result.Outcome)).
		Msg("Invoice event received over HTTP")

	return c.JSON(http.StatusAccepted, result)
}
