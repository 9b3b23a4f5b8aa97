// Package payment_callback settles online subscription payments reported by
// the payment gateway webhook.
package payment_callback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/config"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/tool"
	"github.com/fatflowers/bookrental/pkg/types"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, transactionCode string) (*models.UserSubscription, error)
}

type CallbackLog interface {
	Save(ctx context.Context, log *models.PaymentCallbackLog) error
}

type CallbackHandler struct {
	secret    string
	confirmer PaymentConfirmer
	logs      CallbackLog
	Logger    *zap.SugaredLogger
}

func NewCallbackHandler(cfg *config.Config, confirmer PaymentConfirmer, logs CallbackLog, log *zap.SugaredLogger) *CallbackHandler {
	return &CallbackHandler{secret: cfg.Payment.WebhookSecret, confirmer: confirmer, logs: logs, Logger: log}
}

// HandleCallback verifies the payload and confirms the payment it names. A
// received and a final log row are written for every call.
func (h *CallbackHandler) HandleCallback(ctx context.Context, req *CallbackRequest) (sub *models.UserSubscription, resErr error) {
	receivedAt := time.Now()
	traceID, _ := ctx.Value(logctx.KeyTraceID).(string)

	parser, err := GetJWTCallbackParser(h.secret, req.SignedPayload, receivedAt)
	var code string
	if err == nil {
		code = parser.GetTransactionCode(ctx)
	}
	h.save(ctx, &models.PaymentCallbackLog{
		TraceID:         traceID,
		TransactionCode: code,
		Payload:         req.SignedPayload,
		Status:          types.PaymentCallbackStatusReceived,
		ReceivedAt:      receivedAt,
	})

	defer func() {
		result := datatypes.JSONMap{}
		status := types.PaymentCallbackStatusHandled
		if sub != nil {
			result["subscription_id"] = sub.ID
		}
		if resErr != nil {
			result["error"] = resErr.Error()
			status = types.PaymentCallbackStatusHandleFailed
		}
		h.save(ctx, &models.PaymentCallbackLog{
			TraceID:         traceID,
			TransactionCode: code,
			Payload:         req.SignedPayload,
			Result:          result,
			Status:          status,
			ReceivedAt:      receivedAt,
		})
	}()

	if err != nil {
		logctx.FromCtx(ctx, h.Logger).Warnw("payment_callback_rejected", "error", err.Error())
		return nil, err
	}

	sub, resErr = h.confirmer.ConfirmPayment(ctx, code)
	if resErr != nil {
		resErr = fmt.Errorf("failed to confirm payment %s: %w", code, resErr)
		return nil, resErr
	}
	logctx.FromCtx(ctx, h.Logger).Infow("payment_callback_handled", "transaction_code", code, "subscription_id", sub.ID)
	return sub, nil
}

func (h *CallbackHandler) save(ctx context.Context, l *models.PaymentCallbackLog) {
	l.ID = tool.GenerateUUIDV7()
	if err := h.logs.Save(context.WithoutCancel(ctx), l); err != nil {
		logctx.FromCtx(ctx, h.Logger).Errorw("failed to save payment callback log", "error", err.Error())
	}
}

type GormCallbackLog struct {
	db *gorm.DB
}

func NewGormCallbackLog(db *gorm.DB) *GormCallbackLog { return &GormCallbackLog{db: db} }

func (g *GormCallbackLog) Save(ctx context.Context, l *models.PaymentCallbackLog) error {
	return g.db.WithContext(ctx).Create(l).Error
}

var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewGormCallbackLog, fx.As(new(CallbackLog))),
		func(s *subscription.Service) PaymentConfirmer { return s },
	),
	fx.Provide(NewCallbackHandler),
)
