package http

import (
	"errors"
	"fmt"
	"net/http"

	"StockResearch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the API envelope with statusCode as both HTTP status and body status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// ListResponse writes paginated list response.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return InternalServerErrorResponse(c)
}

// ErrorHandler renders errors that escape handlers (routing misses, rate
// limiting, binder failures) in the same envelope as handler responses.
func ErrorHandler(l *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var (
			appErr *AppError
			he     *echo.HTTPError
			werr   error
		)
		switch {
		case errors.As(err, &appErr):
			werr = AppErrorResponse(c, appErr)
		case errors.As(err, &he):
			werr = DataResponse(c, he.Code, fmt.Sprintf("%v", he.Message))
		default:
			l.Error("unhandled http error",
				logger.String("path", c.Path()),
				logger.Error(err))
			werr = InternalServerErrorResponse(c)
		}
		if werr != nil {
			l.Warn("write error response", logger.Error(werr))
		}
	}
}
