package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Response struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	response := Response{Error: err.Error()}

	e := HttpError{}
	he := &echo.HTTPError{}
	if errors.As(err, &e) {
		code = e.Code
		response.Message = e.Message
	} else if errors.As(err, &he) {
		code = he.Code
		response.Error = fmt.Sprintf("%v", he.Message)
	}
	if response.Message == "" {
		response.Message = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, response)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
