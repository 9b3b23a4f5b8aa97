package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/service/rental"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/response"
	"github.com/fatflowers/bookrental/pkg/types"
)

type RentalAPI interface {
	RentBook(ctx context.Context, userID, bookID, planID string) (*types.Outcome[*models.BookRental], error)
	RenewRental(ctx context.Context, userID, rentalID, planID string) (*models.BookRental, error)
	ReturnBook(ctx context.Context, userID, rentalID string) (*models.BookRental, error)
	CancelRental(ctx context.Context, rentalID string) (*models.BookRental, error)
	CheckAccess(ctx context.Context, userID, bookID string) (*rental.AccessResult, error)
	GetAccessLink(ctx context.Context, userID, bookID string) (*ebook.Link, error)
	ListUserRentals(ctx context.Context, userID string, activeOnly bool) ([]*models.BookRental, error)
	GetRental(ctx context.Context, userID, rentalID string) (*models.BookRental, error)
	ScanRentals(ctx context.Context, req *types.ScanRequest) ([]*models.BookRental, int64, error)
}

type RentBookRequest struct {
	BookID string `json:"book_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

type RenewRentalRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type ScanRentalsResponse struct {
	Items []*models.BookRental `json:"items"`
	Total int64                `json:"total"`
}

// @Summary      Rent Book
// @Description  Rents a book on a single_book plan. An existing active rental of the book is rejected with code 42200.
// @Tags         Rentals
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        request body RentBookRequest true "Book and plan"
// @Success      200  {object}  handlers.RespRentalOutcome
// @Router       /api/v1/rentals [post]
func ApiRentBook(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RentBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.RentBook(c.Request.Context(), userID(c), req.BookID, req.PlanID)
		if err != nil {
			fail(c, log, err)
			return
		}
		outcome(c, out)
	}
}

// @Summary      List My Rentals
// @Tags         Rentals
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        active_only query bool false "Only active rentals"
// @Success      200  {object}  handlers.RespRentalList
// @Router       /api/v1/rentals [get]
func ApiListRentals(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.ListUserRentals(c.Request.Context(), userID(c), queryBool(c, "active_only"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

// @Summary      Get My Rental
// @Description  Returns one rental with its history.
// @Tags         Rentals
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        id path string true "Rental ID"
// @Success      200  {object}  handlers.RespRental
// @Router       /api/v1/rentals/{id} [get]
func ApiGetRental(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svc.GetRental(c.Request.Context(), userID(c), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(r))
	}
}

// @Summary      Renew Rental
// @Description  Extends an active rental by the plan duration, counted from its current end.
// @Tags         Rentals
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        id path string true "Rental ID"
// @Param        request body RenewRentalRequest true "Plan"
// @Success      200  {object}  handlers.RespRental
// @Router       /api/v1/rentals/{id}/renew [post]
func ApiRenewRental(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RenewRentalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		r, err := svc.RenewRental(c.Request.Context(), userID(c), c.Param("id"), req.PlanID)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(r))
	}
}

// @Summary      Return Book
// @Tags         Rentals
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        id path string true "Rental ID"
// @Success      200  {object}  handlers.RespRental
// @Router       /api/v1/rentals/{id}/return [post]
func ApiReturnBook(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svc.ReturnBook(c.Request.Context(), userID(c), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(r))
	}
}

// @Summary      Check Book Access
// @Description  Reports whether the user may read the book and through which entitlement.
// @Tags         Rentals
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        book_id path string true "Book ID"
// @Success      200  {object}  handlers.RespAccess
// @Router       /api/v1/books/{book_id}/access [get]
func ApiCheckAccess(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.CheckAccess(c.Request.Context(), userID(c), c.Param("book_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Book Access Link
// @Description  Returns a presigned download link when the user has a rental or subscription.
// @Tags         Rentals
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        book_id path string true "Book ID"
// @Success      200  {object}  handlers.RespLink
// @Router       /api/v1/books/{book_id}/access_link [get]
func ApiGetAccessLink(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := svc.GetAccessLink(c.Request.Context(), userID(c), c.Param("book_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(link))
	}
}

// @Summary      Cancel Rental (Admin)
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Rental ID"
// @Success      200  {object}  handlers.RespRental
// @Router       /api/v1/admin/rentals/{id}/cancel [post]
func ApiCancelRental(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svc.CancelRental(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(r))
	}
}

// @Summary      Scan Rentals (Admin)
// @Description  Paginated and filterable list of all rentals.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body types.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanRentals
// @Router       /api/v1/admin/rentals/scan [post]
func ApiScanRentals(svc RentalAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		items, total, err := svc.ScanRentals(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ScanRentalsResponse{Items: items, Total: total}))
	}
}

func RegisterRentalRoutes(r gin.IRouter, svc RentalAPI, log *zap.SugaredLogger) {
	r.POST("/rentals", ApiRentBook(svc, log))
	r.GET("/rentals", ApiListRentals(svc, log))
	r.GET("/rentals/:id", ApiGetRental(svc, log))
	r.POST("/rentals/:id/renew", ApiRenewRental(svc, log))
	r.POST("/rentals/:id/return", ApiReturnBook(svc, log))
	r.GET("/books/:book_id/access", ApiCheckAccess(svc, log))
	r.GET("/books/:book_id/access_link", ApiGetAccessLink(svc, log))
}

func RegisterAdminRentalRoutes(r gin.IRouter, svc RentalAPI, log *zap.SugaredLogger) {
	r.POST("/rentals/:id/cancel", ApiCancelRental(svc, log))
	r.POST("/rentals/scan", ApiScanRentals(svc, log))
}
