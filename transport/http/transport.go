package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/kdvector"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, kdvector.ErrDimensionMismatch),
		errors.Is(err, kdvector.ErrEmptyDocument),
		errors.Is(err, kdvector.ErrEmptyQuery):
		return http.StatusBadRequest

	case errors.Is(err, kdvector.ErrPointNotFound):
		return http.StatusNotFound

	default:
		return http.StatusExpectationFailed
	}
}

func fail(c *gin.Context, status int, err error) {
	c.String(status, err.Error())
	c.Error(err)
	c.Abort()
}

func UploadResumeHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.UploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		// A resume without sentences inserts nothing but is still accepted,
		// as the frontend expects.
		ctx := c.Request.Context()
		_, err := endpoint(ctx, req)
		if err != nil && !errors.Is(err, kdvector.ErrEmptyDocument) {
			fail(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "Resume vectorized and inserted")
	}
}

func UploadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.UploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func QueryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.QueryRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func InsertHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.InsertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func QueryVectorHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req kdvector.QueryVectorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func MetadataHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, id)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ClearHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		_, err := endpoint(ctx, nil)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "Database cleared successfully")
	}
}

func StatsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SaveHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		_, err := endpoint(ctx, nil)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}

func LoadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		_, err := endpoint(ctx, nil)
		if err != nil {
			fail(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}
