package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eyeluxe/internal/service"
)

// @Summary List bills
// @Description Newest first
// @Tags billing
// @Produce json
// @Success 200 {array} domain.Bill
// @Failure 500 {object} map[string]string
// @Router /billing [get]
func (s *Server) listBills(c *gin.Context) {
	list, err := s.svc.Billing.List(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Create bill
// @Description Checks and decrements stock, assigns the invoice number and stores the bill in one transaction. Totals are computed by the server.
// @Tags billing
// @Accept json
// @Produce json
// @Param input body service.CreateBillRequest true "Cart"
// @Success 201 {object} domain.Bill
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /billing [post]
func (s *Server) createBill(c *gin.Context) {
	var req service.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	b, err := s.svc.Billing.CreateBill(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary Get bill by id
// @Tags billing
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} domain.Bill
// @Failure 404 {object} map[string]string
// @Router /billing/{id} [get]
func (s *Server) getBill(c *gin.Context) {
	b, err := s.svc.Billing.Get(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Delete bill
// @Description Removes the record only; stock is not restored
// @Tags billing
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /billing/{id} [delete]
func (s *Server) deleteBill(c *gin.Context) {
	if err := s.svc.Billing.Delete(c, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted"})
}

// @Summary Export bills
// @Tags reports
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Router /reports/bills/export [get]
func (s *Server) exportBills(c *gin.Context) {
	sendExport(c, "bills", func(format string, w io.Writer) error {
		return s.svc.Billing.ExportBills(c, format, w)
	})
}

// sendExport buffers the export so a failure can still be answered with JSON.
func sendExport(c *gin.Context, name string, export func(format string, w io.Writer) error) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", service.ExportCSV)))
	var buf bytes.Buffer
	if err := export(format, &buf); err != nil {
		writeError(c, err)
		return
	}
	if format != service.ExportXLSX {
		format = service.ExportCSV
	}
	file := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	c.Data(http.StatusOK, service.ExportContentType(format), buf.Bytes())
}
