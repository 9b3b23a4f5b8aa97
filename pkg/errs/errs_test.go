package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad %s", "name"), KindValidation},
		{"not found", NotFound("plan %d not found", 3), KindNotFound},
		{"authorization", Authorization("not yours"), KindAuthorization},
		{"conflict", Conflict("dup"), KindConflict},
		{"wrapped", fmt.Errorf("failed to rent: %w", NotFound("book")), KindNotFound},
		{"plain", errors.New("boom"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestMessageAndUnwrap(t *testing.T) {
	cause := errors.New("unique violation")
	err := fmt.Errorf("failed to create plan: %w", Wrap(KindConflict, cause, "plan name already exists"))

	require.True(t, IsConflict(err))
	assert.Equal(t, "plan name already exists", Message(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
