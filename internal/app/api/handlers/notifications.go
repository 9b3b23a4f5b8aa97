package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/response"
)

const defaultNotificationLimit = 50

type NotificationAPI interface {
	List(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

// @Summary      List My Notifications
// @Description  Newest first.
// @Tags         Notifications
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        limit query int false "Max items, default 50"
// @Success      200  {object}  handlers.RespNotificationList
// @Router       /api/v1/notifications [get]
func ApiListNotifications(svc NotificationAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultNotificationLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "limit must be a positive integer"))
				return
			}
			limit = n
		}
		items, err := svc.List(c.Request.Context(), userID(c), limit)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

func RegisterNotificationRoutes(r gin.IRouter, svc NotificationAPI, log *zap.SugaredLogger) {
	r.GET("/notifications", ApiListNotifications(svc, log))
}
