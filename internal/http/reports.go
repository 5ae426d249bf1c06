package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary Dashboard
// @Description Stock value, sales per period, payment split, pending returns and expiry alerts
// @Tags reports
// @Produce json
// @Success 200 {object} service.Dashboard
// @Failure 500 {object} map[string]string
// @Router /reports/dashboard [get]
func (s *Server) dashboard(c *gin.Context) {
	d, err := s.svc.Reports.Dashboard(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Analytics
// @Description Per-day sales and expense series, oldest first
// @Tags reports
// @Produce json
// @Success 200 {object} service.Analytics
// @Failure 500 {object} map[string]string
// @Router /reports/analytics [get]
func (s *Server) analytics(c *gin.Context) {
	a, err := s.svc.Reports.Analytics(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary Export expenses
// @Tags reports
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Router /reports/expenses/export [get]
func (s *Server) exportExpenses(c *gin.Context) {
	sendExport(c, "expenses", func(format string, w io.Writer) error {
		return s.svc.Reports.ExportExpenses(c, format, w)
	})
}

// @Summary Export rentals
// @Description Optionally only the rentals in one status
// @Tags reports
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Param status query string false "Rented or Returned"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Router /reports/rentals/export [get]
func (s *Server) exportRentals(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	name := "rentals"
	if status != "" {
		name += "-" + strings.ToLower(status)
	}
	sendExport(c, name, func(format string, w io.Writer) error {
		return s.svc.Reports.ExportRentals(c, format, status, w)
	})
}
