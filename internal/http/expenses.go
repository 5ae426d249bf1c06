package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eyeluxe/internal/domain"
)

// @Summary List expenses
// @Tags expenses
// @Produce json
// @Success 200 {array} domain.Expense
// @Failure 500 {object} map[string]string
// @Router /expenses [get]
func (s *Server) listExpenses(c *gin.Context) {
	list, err := s.svc.Expenses.List(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Record an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param input body domain.Expense true "Expense"
// @Success 201 {object} domain.Expense
// @Failure 400 {object} map[string]string
// @Router /expenses [post]
func (s *Server) createExpense(c *gin.Context) {
	var req domain.Expense
	if !bindForm(c, &req) {
		return
	}
	e, err := s.svc.Expenses.Create(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// @Summary Update expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param input body map[string]interface{} true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /expenses/{id} [put]
func (s *Server) updateExpense(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	out, err := s.svc.Expenses.Update(c, c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Delete expense
// @Tags expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /expenses/{id} [delete]
func (s *Server) deleteExpense(c *gin.Context) {
	if err := s.svc.Expenses.Delete(c, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}
