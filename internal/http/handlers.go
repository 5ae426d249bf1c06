package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"eyeluxe/internal/domain"
	"eyeluxe/internal/repository"
	"eyeluxe/internal/service"
)

// Services everything the API serves
type Services struct {
	Products *service.ProductService
	Rentals  *service.RentalService
	Expenses *service.ExpenseService
	Billing  *service.BillingService
	Reports  *service.ReportService
}

type Server struct {
	engine *gin.Engine
	svc    Services
}

// NewServer builds the gin engine. An empty origins list, or "*", allows any
// origin.
func NewServer(svc Services, origins []string) *Server {
	r := gin.New()
	r.Use(requestLogger(zap.L()), gin.Recovery(), corsMiddleware(origins))
	s := &Server{engine: r, svc: svc}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		api.GET("/health", s.health)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)

		rentals := api.Group("/rentals")
		rentals.GET("", s.listRentals)
		rentals.POST("", s.createRental)
		rentals.GET(":id", s.getRental)
		rentals.PUT(":id", s.updateRental)
		rentals.DELETE(":id", s.deleteRental)
		rentals.POST(":id/return", s.returnRental)
		rentals.GET(":id/settlement", s.rentalSettlement)

		expenses := api.Group("/expenses")
		expenses.GET("", s.listExpenses)
		expenses.POST("", s.createExpense)
		expenses.PUT(":id", s.updateExpense)
		expenses.DELETE(":id", s.deleteExpense)

		billing := api.Group("/billing")
		billing.GET("", s.listBills)
		billing.POST("", s.createBill)
		billing.GET(":id", s.getBill)
		billing.DELETE(":id", s.deleteBill)

		reports := api.Group("/reports")
		reports.GET("/dashboard", s.dashboard)
		reports.GET("/analytics", s.analytics)
		reports.GET("/bills/export", s.exportBills)
		reports.GET("/expenses/export", s.exportExpenses)
		reports.GET("/rentals/export", s.exportRentals)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLogger access log in the shape of gin.Logger, written through zap
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Product handlers

// @Summary List products
// @Description Newest first
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Failure 500 {object} map[string]string
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.svc.Products.List(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body domain.Product true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req domain.Product
	if !bindForm(c, &req, "stock") {
		return
	}
	p, err := s.svc.Products.Create(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.svc.Products.GetByID(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Description Partial update; responds with the applied fields
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body map[string]interface{} true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	out, err := s.svc.Products.Update(c, c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Delete product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.svc.Products.Delete(c, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// bindForm decodes a create body leniently: numeric fields may be sent as strings.
func bindForm(c *gin.Context, dst any, whole ...string) bool {
	body, ok := bindPatch(c)
	if !ok {
		return false
	}
	if err := body.Decode(dst, whole...); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func bindPatch(c *gin.Context) (service.Patch, bool) {
	var patch service.Patch
	if err := c.ShouldBindJSON(&patch); err != nil || patch == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return nil, false
	}
	return patch, true
}

func writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, repository.ErrTxConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
