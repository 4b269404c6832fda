package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/api/metrics"
	"github.com/easyref/easyref-api/internal/core/ports"
	"github.com/easyref/easyref-api/internal/core/service"
)

const maxWebhookBody = 64 << 10

// UpgradeWaiter waits for a pending upgrade to land.
type UpgradeWaiter interface {
	Wait(ctx context.Context, profileID string) service.UpgradeResult
}

// BillingHandler serves checkout, the post-checkout wait and the payment webhook.
type BillingHandler struct {
	billing ports.BillingService
	queue   ports.WebhookQueue
	waiter  UpgradeWaiter
	log     zerolog.Logger
}

func NewBillingHandler(billing ports.BillingService, queue ports.WebhookQueue, waiter UpgradeWaiter, log zerolog.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, queue: queue, waiter: waiter, log: log}
}

// Checkout handles POST /v1/me/checkout.
//
// @Summary      Start a premium checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      checkoutRequest  false  "Billing interval (monthly by default)"
// @Success      200   {object}  ports.CheckoutSession
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/me/checkout [post]
func (h *BillingHandler) Checkout(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cs, err := h.billing.Checkout(c.Request().Context(), ws.Snapshot().Profile, ports.BillingInterval(req.Interval))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

// Upgrade handles GET /v1/me/upgrade. It holds the request until the tier
// flips, the attempts run out or the client goes away.
//
// @Summary      Wait for a completed upgrade
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  service.UpgradeResult
// @Router       /v1/me/upgrade [get]
func (h *BillingHandler) Upgrade(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	res := h.waiter.Wait(c.Request().Context(), ws.ProfileID())
	metrics.UpgradeWaitsTotal.WithLabelValues(string(res.Status)).Inc()

	if res.Profile != nil {
		// Best effort: a busy workspace catches up on its next read.
		_ = ws.Dispatch(service.SetProfile{Profile: *res.Profile})
	}
	return c.JSON(http.StatusOK, res)
}

// Webhook handles POST /v1/webhooks/stripe. Verified events are processed on
// the profile's worker and acknowledged once applied; redeliveries of an
// applied event are acknowledged without processing.
//
// @Summary      Payment provider webhook
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Webhook signature"
// @Success      200               {object}  webhookResponse
// @Failure      400               {object}  errorResponse
// @Failure      500               {object}  errorResponse
// @Router       /v1/webhooks/stripe [post]
func (h *BillingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	ev, fresh, err := h.billing.VerifyWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return err
	}
	if !fresh {
		metrics.WebhookDedupTotal.WithLabelValues("hit").Inc()
		h.log.Info().Str("event_id", ev.ID).Msg("duplicate webhook skipped")
		return c.JSON(http.StatusOK, webhookResponse{Received: true, Duplicate: true})
	}
	metrics.WebhookDedupTotal.WithLabelValues("miss").Inc()

	// A non-2xx answer makes the provider redeliver the event.
	if err := h.queue.Submit(c.Request().Context(), ev); err != nil {
		return fmt.Errorf("webhook %s: %w", ev.ID, err)
	}
	return c.JSON(http.StatusOK, webhookResponse{Received: true})
}
