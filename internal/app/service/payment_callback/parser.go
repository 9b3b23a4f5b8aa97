package payment_callback

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/fatflowers/bookrental/pkg/errs"
)

// CallbackRequest is the webhook body sent by the payment gateway.
type CallbackRequest struct {
	SignedPayload string `json:"signedPayload" binding:"required"`
}

// CallbackClaims is the signed content of a payment callback.
type CallbackClaims struct {
	TransactionCode string `json:"transaction_code"`
	Amount          int64  `json:"amount,omitempty"`
	jwt.StandardClaims
}

type CallbackParser interface {
	GetTransactionCode(ctx context.Context) string
	GetReceivedAt(ctx context.Context) time.Time
	GetData(ctx context.Context) any
}

type JWTCallbackParser struct {
	ReceivedAt time.Time
	Claims     *CallbackClaims
}

func (p *JWTCallbackParser) GetTransactionCode(ctx context.Context) string {
	return p.Claims.TransactionCode
}

func (p *JWTCallbackParser) GetReceivedAt(ctx context.Context) time.Time {
	return p.ReceivedAt
}

func (p *JWTCallbackParser) GetData(ctx context.Context) any {
	return p.Claims
}

// GetJWTCallbackParser verifies an HS256 payload signed with secret.
func GetJWTCallbackParser(secret, signedPayload string, receivedAt time.Time) (CallbackParser, error) {
	if secret == "" {
		return nil, errs.Authorization("payment webhook secret is not configured")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	claims := &CallbackClaims{}
	_, err := jwt.ParseWithClaims(signedPayload, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindAuthorization, err, "invalid payment callback signature")
	}
	if claims.TransactionCode == "" {
		return nil, errs.Validation("transaction_code is missing from payment callback")
	}

	return &JWTCallbackParser{ReceivedAt: receivedAt, Claims: claims}, nil
}
