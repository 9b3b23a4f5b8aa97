package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/plan"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/response"
	"github.com/fatflowers/bookrental/pkg/types"
)

type PlanAPI interface {
	Create(ctx context.Context, in plan.Input) (*models.RentalPlan, error)
	Update(ctx context.Context, id string, in plan.Input) (*models.RentalPlan, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.RentalPlan, error)
	List(ctx context.Context, onlyActive bool) ([]*models.RentalPlan, error)
	ListByType(ctx context.Context, planType types.PlanType, onlyActive bool) ([]*models.RentalPlan, error)
}

func listPlans(c *gin.Context, svc PlanAPI, onlyActive bool) ([]*models.RentalPlan, error) {
	if t := c.Query("plan_type"); t != "" {
		return svc.ListByType(c.Request.Context(), types.PlanType(t), onlyActive)
	}
	return svc.List(c.Request.Context(), onlyActive)
}

// @Summary      List Plans
// @Description  Lists the active rental and subscription plans, optionally of one type.
// @Tags         Plans
// @Produce      json
// @Param        plan_type query string false "single_book or subscription"
// @Success      200  {object}  handlers.RespPlanList
// @Router       /api/v1/plans [get]
func ApiListPlans(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := listPlans(c, svc, true)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      Get Plan
// @Tags         Plans
// @Produce      json
// @Param        id path string true "Plan ID"
// @Success      200  {object}  handlers.RespPlan
// @Router       /api/v1/plans/{id} [get]
func ApiGetPlan(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      List Plans (Admin)
// @Description  Lists all plans including inactive ones unless active_only is set.
// @Tags         Admin
// @Produce      json
// @Param        plan_type query string false "single_book or subscription"
// @Param        active_only query bool false "Only active plans"
// @Success      200  {object}  handlers.RespPlanList
// @Router       /api/v1/admin/plans [get]
func ApiAdminListPlans(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := listPlans(c, svc, queryBool(c, "active_only"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      Create Plan (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body plan.Input true "Plan fields"
// @Success      200  {object}  handlers.RespPlan
// @Router       /api/v1/admin/plans [post]
func ApiCreatePlan(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in plan.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		p, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Update Plan (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Plan ID"
// @Param        request body plan.Input true "Plan fields"
// @Success      200  {object}  handlers.RespPlan
// @Router       /api/v1/admin/plans/{id} [put]
func ApiUpdatePlan(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in plan.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		p, err := svc.Update(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Delete Plan (Admin)
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Plan ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/plans/{id} [delete]
func ApiDeletePlan(svc PlanAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterPlanRoutes(r gin.IRouter, svc PlanAPI, log *zap.SugaredLogger) {
	r.GET("/plans", ApiListPlans(svc, log))
	r.GET("/plans/:id", ApiGetPlan(svc, log))
}

func RegisterAdminPlanRoutes(r gin.IRouter, svc PlanAPI, log *zap.SugaredLogger) {
	r.GET("/plans", ApiAdminListPlans(svc, log))
	r.POST("/plans", ApiCreatePlan(svc, log))
	r.PUT("/plans/:id", ApiUpdatePlan(svc, log))
	r.DELETE("/plans/:id", ApiDeletePlan(svc, log))
}
