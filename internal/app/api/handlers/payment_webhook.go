package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/payment_callback"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/response"
)

type PaymentCallbackAPI interface {
	HandleCallback(ctx context.Context, req *payment_callback.CallbackRequest) (*models.UserSubscription, error)
}

// @Summary      Payment Webhook
// @Description  Confirms an online subscription payment. The body carries an HS256-signed JWT naming the transaction code.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body payment_callback.CallbackRequest true "Signed payment callback"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/payment/webhook [post]
func ApiPaymentWebhook(h PaymentCallbackAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logctx.FromGin(c, log).Infow("payment_webhook_received")

		var req payment_callback.CallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		sub, err := h.HandleCallback(c.Request.Context(), &req)
		if err != nil {
			logctx.FromGin(c, log).Warnw("payment_webhook_handle_error", "error", err.Error())
			fail(c, log, err)
			return
		}
		logctx.FromGin(c, log).Infow("payment_webhook_handled", "subscription_id", sub.ID)
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, h PaymentCallbackAPI, log *zap.SugaredLogger) {
	r.POST("/payment/webhook", ApiPaymentWebhook(h, log))
}
