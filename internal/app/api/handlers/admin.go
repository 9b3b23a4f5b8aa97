package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/statistics"
	"github.com/fatflowers/bookrental/internal/app/service/sweeper"
	"github.com/fatflowers/bookrental/pkg/response"
)

type SweepAPI interface {
	RunOnce(ctx context.Context) (*sweeper.Result, error)
}

type StatisticsAPI interface {
	GetStatistic(ctx context.Context, request *statistics.StatisticRequest) (*statistics.StatisticResponse, error)
}

// @Summary      Run Expiry Sweep (Admin)
// @Description  Expires every rental and subscription whose end has passed. Safe to call repeatedly.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespSweep
// @Router       /api/v1/admin/sweep [post]
func ApiRunSweep(svc SweepAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.RunOnce(c.Request.Context())
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Statistics (Admin)
// @Description  Retrieves daily rental and subscription statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/statistics [post]
func ApiGetStatistic(svc StatisticsAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, sweep SweepAPI, stats StatisticsAPI, log *zap.SugaredLogger) {
	r.POST("/sweep", ApiRunSweep(sweep, log))
	r.POST("/statistics", ApiGetStatistic(stats, log))
}
