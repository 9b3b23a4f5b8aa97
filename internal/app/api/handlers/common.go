package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/api/middleware"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/response"
	"github.com/fatflowers/bookrental/pkg/types"
)

// fail writes the error envelope for err. Internal faults are logged.
func fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	res := response.FromError(err)
	if res.Code == response.APIResponseCodeError {
		logctx.FromGin(c, log).Errorw("request_failed", "path", c.FullPath(), "error", err.Error())
	}
	c.JSON(http.StatusOK, res)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
}

// outcome writes a successful Outcome as OK and a failed one as a rejection
// carrying its message.
func outcome[T any](c *gin.Context, out *types.Outcome[T]) {
	if !out.Success {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeRejected, out.Message))
		return
	}
	c.JSON(http.StatusOK, response.OKT(out))
}

func userID(c *gin.Context) string {
	return middleware.UserIDFrom(c)
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
