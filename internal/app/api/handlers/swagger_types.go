package handlers

import (
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/service/rental"
	"github.com/fatflowers/bookrental/internal/app/service/statistics"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/app/service/sweeper"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/response"
	"github.com/fatflowers/bookrental/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespPlan struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.RentalPlan        `json:"data"`
}

type RespPlanList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.RentalPlan      `json:"data"`
}

type RespRental struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.BookRental        `json:"data"`
}

type RespRentalList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.BookRental      `json:"data"`
}

// RespRentalOutcome wraps the result of renting a book. Rejections carry code
// 42200 and the reason in data.
type RespRentalOutcome struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    types.Outcome[*models.BookRental] `json:"data"`
}

type RespScanRentals struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ScanRentalsResponse      `json:"data"`
}

type RespAccess struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    rental.AccessResult      `json:"data"`
}

type RespLink struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ebook.Link               `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.UserSubscription  `json:"data"`
}

type RespSubscriptionList struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    []models.UserSubscription `json:"data"`
}

type RespSubscribeOutcome struct {
	Code    response.APIResponseCode                     `json:"code"`
	Message string                                       `json:"message"`
	Data    types.Outcome[*subscription.SubscribeResult] `json:"data"`
}

type RespChapterList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []ebook.Chapter          `json:"data"`
}

type RespChapterPages struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ebook.ChapterPages       `json:"data"`
}

type RespUpload struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ebook.UploadResult       `json:"data"`
}

type RespBundle struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ebook.BundleResult       `json:"data"`
}

type RespChapterUpload struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    ebook.ChapterUploadResult `json:"data"`
}

type RespDeleteContent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    DeleteContentResponse    `json:"data"`
}

type RespNotificationList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Notification    `json:"data"`
}

type RespSweep struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    sweeper.Result           `json:"data"`
}

type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}
