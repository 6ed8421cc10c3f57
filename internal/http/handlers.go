package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"autoorder/internal/gateway"
	"autoorder/internal/repository"
	"autoorder/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	orders   *service.OrderService
	webhooks *service.WebhookService
}

func NewServer(products *service.ProductService, orders *service.OrderService, webhooks *service.WebhookService, allowedOrigins []string) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), PrometheusMiddleware())

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsCfg.AllowOrigins = allowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-Webhook-Signature")
	r.Use(cors.New(corsCfg))

	s := &Server{engine: r, products: products, orders: orders, webhooks: webhooks}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		api.GET("/products", s.listProducts)
		api.POST("/create-order", s.createOrder)
		api.POST("/check-status", s.checkStatus)
		api.POST("/webhook", s.webhook)
		api.GET("/webhook/history", s.webhookHistory)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "products": list})
}

type createOrderReq struct {
	ProductID  string `json:"product_id"`
	BuyerEmail string `json:"buyer_email"`
	BuyerName  string `json:"buyer_name"`
	Quantity   int    `json:"quantity"`
}

// @Summary Create order and QRIS payment
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/create-order [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	o, err := s.orders.CreateOrder(c, service.CreateOrderInput{
		ProductID:  req.ProductID,
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		Quantity:   req.Quantity,
	})
	recordOrderOperation("create", err == nil)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "order": o})
}

type checkStatusReq struct {
	OrderID string `json:"order_id"`
}

// @Summary Check order payment status
// @Tags orders
// @Accept json
// @Produce json
// @Param input body checkStatusReq true "Order reference"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/check-status [post]
func (s *Server) checkStatus(c *gin.Context) {
	var req checkStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}
	status, o, err := s.orders.CheckStatus(c, req.OrderID)
	recordOrderOperation("check_status", err == nil)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status, "order": o})
}

// @Summary Payment gateway webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/webhook [post]
func (s *Server) webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	signature := c.GetHeader("X-Webhook-Signature")
	if signature == "" {
		signature = c.GetHeader("X-Pakasir-Signature")
	}
	s.webhooks.Ingest(c, body, signature, c.ClientIP())
	// always acknowledge so the gateway stops retrying; outcomes are
	// visible in the history, never in the response
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// @Summary Recent webhook deliveries
// @Tags webhooks
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/webhook/history [get]
func (s *Server) webhookHistory(c *gin.Context) {
	events := s.webhooks.History()
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(events), "events": events})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, gateway.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case gateway.IsGatewayError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
