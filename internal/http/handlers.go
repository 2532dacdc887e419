package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/GooferByte/wellness-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// Router wires all handlers. rec may be nil, in which case /metrics is not served.
func Router(engine *service.Engine, logger *logrus.Logger, rec *metrics.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(logMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if rec != nil {
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	r.GET("/ledger", func(c *gin.Context) {
		handleLedger(c, engine)
	})
	r.GET("/actions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actions": engine.Actions.All()})
	})
	r.POST("/actions/:actionId/award", func(c *gin.Context) {
		handleAward(c, engine)
	})
	r.GET("/rewards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rewards": engine.Rewards.All()})
	})
	r.POST("/rewards/:rewardId/redeem", func(c *gin.Context) {
		handleRedeem(c, engine)
	})
	r.GET("/vouchers", func(c *gin.Context) {
		handleVouchers(c, engine)
	})
	r.POST("/vouchers/:voucherId/use", func(c *gin.Context) {
		handleUseVoucher(c, engine)
	})
	r.GET("/challenges/today", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"challenges": engine.Challenges.Today()})
	})
	r.POST("/challenges/:challengeId/complete", func(c *gin.Context) {
		handleCompleteChallenge(c, engine)
	})
	return r
}

func handleLedger(c *gin.Context, engine *service.Engine) {
	state := engine.Ledger.State()
	c.JSON(http.StatusOK, gin.H{
		"coinsTotal":   state.CoinsTotal,
		"todayEarned":  state.TodayEarned,
		"awardedToday": state.AwardedToday,
		"todayRedeems": engine.Vouchers.TodayRedeems(),
	})
}

func handleAward(c *gin.Context, engine *service.Engine) {
	res, err := engine.Ledger.Award(c.Request.Context(), c.Param("actionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Awarded {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func handleRedeem(c *gin.Context, engine *service.Engine) {
	v, err := engine.Ledger.Redeem(c.Request.Context(), c.Param("rewardId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"voucher":    v,
		"coinsTotal": engine.Ledger.CurrentBalance(),
	})
}

func handleVouchers(c *gin.Context, engine *service.Engine) {
	var vouchers []models.Voucher
	switch status := c.DefaultQuery("status", "active"); status {
	case "active":
		vouchers = engine.Vouchers.Active()
	case "redeemed":
		vouchers = engine.Vouchers.Redeemed()
	case "all":
		vouchers = engine.Vouchers.List()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of active, redeemed, all"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": vouchers})
}

func handleUseVoucher(c *gin.Context, engine *service.Engine) {
	v, err := engine.Vouchers.MarkUsed(c.Request.Context(), c.Param("voucherId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voucher": v})
}

func handleCompleteChallenge(c *gin.Context, engine *service.Engine) {
	res, err := engine.Challenges.Complete(c.Request.Context(), c.Param("challengeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrInvalidReward),
		errors.Is(err, service.ErrVoucherNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidChallenge):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrAlreadyUsedVoucher):
		status = http.StatusConflict
	case errors.Is(err, service.ErrStorageFailure),
		errors.Is(err, service.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":    c.Writer.Status(),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"latency":   time.Since(start).String(),
			"clientIP":  c.ClientIP(),
			"requestID": c.GetString("requestID"),
		}).Info("request completed")
	}
}
