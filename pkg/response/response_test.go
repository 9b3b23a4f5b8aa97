package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fatflowers/bookrental/pkg/errs"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		code APIResponseCode
		data string
	}{
		{errs.Validation("price must be positive"), APIResponseCodeBadRequest, "price must be positive"},
		{fmt.Errorf("failed to renew: %w", errs.Authorization("rental belongs to another user")), APIResponseCodeForbidden, "rental belongs to another user"},
		{errs.NotFound("book not found"), APIResponseCodeNotFound, "book not found"},
		{errs.Conflict("plan name already exists"), APIResponseCodeConflict, "plan name already exists"},
		{errors.New("connection refused"), APIResponseCodeError, "connection refused"},
	}
	for _, tc := range cases {
		resp := FromError(tc.err)
		assert.Equal(t, tc.code, resp.Code)
		assert.Equal(t, tc.data, resp.Data)
		assert.NotEmpty(t, resp.Message)
	}
}
