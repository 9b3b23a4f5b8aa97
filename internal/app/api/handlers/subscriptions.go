package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/response"
	"github.com/fatflowers/bookrental/pkg/types"
)

type SubscriptionAPI interface {
	Subscribe(ctx context.Context, userID, planID string, method types.PaymentMethod) (*types.Outcome[*subscription.SubscribeResult], error)
	GetActive(ctx context.Context, userID string) (*models.UserSubscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]*models.UserSubscription, error)
	Cancel(ctx context.Context, subscriptionID string) error
}

type SubscribeRequest struct {
	PlanID        string              `json:"plan_id" binding:"required"`
	PaymentMethod types.PaymentMethod `json:"payment_method" binding:"required"`
}

// @Summary      Subscribe
// @Description  Starts a subscription. Online payments stay unpaid until the payment webhook confirms them. A user with an active subscription is rejected with code 42200.
// @Tags         Subscriptions
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        request body SubscribeRequest true "Plan and payment method"
// @Success      200  {object}  handlers.RespSubscribeOutcome
// @Router       /api/v1/subscriptions [post]
func ApiSubscribe(svc SubscriptionAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.Subscribe(c.Request.Context(), userID(c), req.PlanID, req.PaymentMethod)
		if err != nil {
			fail(c, log, err)
			return
		}
		outcome(c, out)
	}
}

// @Summary      Get Active Subscription
// @Tags         Subscriptions
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscriptions/active [get]
func ApiGetActiveSubscription(svc SubscriptionAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.GetActive(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List My Subscriptions
// @Tags         Subscriptions
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Success      200  {object}  handlers.RespSubscriptionList
// @Router       /api/v1/subscriptions [get]
func ApiListSubscriptions(svc SubscriptionAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := svc.ListUserSubscriptions(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

// @Summary      Cancel Subscription (Admin)
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/subscriptions/{id}/cancel [post]
func ApiCancelSubscription(svc SubscriptionAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc SubscriptionAPI, log *zap.SugaredLogger) {
	r.POST("/subscriptions", ApiSubscribe(svc, log))
	r.GET("/subscriptions", ApiListSubscriptions(svc, log))
	r.GET("/subscriptions/active", ApiGetActiveSubscription(svc, log))
}

func RegisterAdminSubscriptionRoutes(r gin.IRouter, svc SubscriptionAPI, log *zap.SugaredLogger) {
	r.POST("/subscriptions/:id/cancel", ApiCancelSubscription(svc, log))
}
