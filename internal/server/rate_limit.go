package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pizzaledger/internal/observability/logger"
	"go.uber.org/zap"
)

// MutationRateLimit throttles every non-read request per client address.
func (s *Server) MutationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.guard.Enabled() || isReadMethod(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.guard.AllowMutation(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("mutation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.FromContext(ctx).Warn("mutation rate limit exceeded", zap.String("route", c.FullPath()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

// BulkOperationLock lets one reset or import run at a time across replicas.
func (s *Server) BulkOperationLock() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.guard.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		release, acquired, err := s.guard.LockBulk(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("bulk operation lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !acquired {
			AbortWithError(c, ErrConflict)
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.FromContext(ctx).Warn("bulk operation unlock failed", zap.Error(err))
			}
		}()
		c.Next()
	}
}

func isReadMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
