package tool

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var transactionCodeCharset = append(append([]rune{}, lo.UpperCaseLettersCharset...), lo.NumbersCharset...)

// GenerateTransactionCode returns a payment reference such as SUB-20260314-7KQ2ZD.
func GenerateTransactionCode(at time.Time) string {
	return "SUB-" + at.Format("20060102") + "-" + lo.RandomString(6, transactionCodeCharset)
}
