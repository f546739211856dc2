package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/bondmarket/internal/market/application"
	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/logger"
)

// HTTP 处理器
// 负责处理订单提交与成交账本查询相关的 HTTP 请求
type MarketHandler struct {
	matching *application.MatchingService // 撮合应用服务
	ledger   *application.LedgerService   // 账本应用服务
}

// 创建 HTTP 处理器实例
// matching: 注入的撮合应用服务
// ledger: 注入的账本应用服务
func NewMarketHandler(matching *application.MatchingService, ledger *application.LedgerService) *MarketHandler {
	return &MarketHandler{matching: matching, ledger: ledger}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *MarketHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/orders", h.SubmitOrder)
		api.GET("/orders/:id", h.GetOrder)
		api.GET("/ledger", h.QueryLedger)
		api.GET("/ledger/user/:userId", h.GetUserTrades)
		api.GET("/ledger/instrument/:instrument", h.GetInstrumentTrades)
		api.GET("/ledger/today", h.GetTodayTrades)
	}
}

// SubmitOrderRequest 提交订单请求
type SubmitOrderRequest struct {
	Instrument string          `json:"instrument" binding:"required"`
	Side       string          `json:"side" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	UserID     string          `json:"userId" binding:"required"`
}

// SubmitOrder 提交订单并返回本次撮合产生的成交
func (h *MarketHandler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, trades, err := h.matching.SubmitOrder(c.Request.Context(), req.Instrument, domain.OrderSide(req.Side), req.Price, req.Quantity, req.UserID)
	if err != nil {
		h.writeError(c, "failed to submit order", err)
		return
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "trades": trades})
}

// GetOrder 查询订单详情
func (h *MarketHandler) GetOrder(c *gin.Context) {
	order, err := h.matching.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// QueryLedger 按条件查询成交账本
func (h *MarketHandler) QueryLedger(c *gin.Context) {
	filter := application.LedgerFilter{
		UserID:     c.Query("userId"),
		Instrument: c.Query("instrument"),
		StartDay:   c.Query("startDate"),
		EndDay:     c.Query("endDate"),
	}
	if raw := c.Query("minAmount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minAmount"})
			return
		}
		filter.MinAmount = &amount
	}
	if raw := c.Query("maxAmount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxAmount"})
			return
		}
		filter.MaxAmount = &amount
	}

	trades, err := h.ledger.Query(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "failed to query ledger", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// GetUserTrades 查询某用户参与的全部成交
func (h *MarketHandler) GetUserTrades(c *gin.Context) {
	trades, err := h.ledger.QueryByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, "failed to query user trades", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// GetInstrumentTrades 查询某品种的全部成交
func (h *MarketHandler) GetInstrumentTrades(c *gin.Context) {
	trades, err := h.ledger.QueryByInstrument(c.Request.Context(), c.Param("instrument"))
	if err != nil {
		h.writeError(c, "failed to query instrument trades", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// GetTodayTrades 查询当日全部成交
func (h *MarketHandler) GetTodayTrades(c *gin.Context) {
	trades, err := h.ledger.QueryToday(c.Request.Context())
	if err != nil {
		h.writeError(c, "failed to query today trades", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// writeError 按错误类别映射状态码并输出统一错误体
func (h *MarketHandler) writeError(c *gin.Context, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrComplianceRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrTradeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
