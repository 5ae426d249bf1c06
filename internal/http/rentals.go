package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eyeluxe/internal/domain"
)

// @Summary List rentals
// @Description Ordered by start date, newest first
// @Tags rentals
// @Produce json
// @Success 200 {array} domain.Rental
// @Failure 500 {object} map[string]string
// @Router /rentals [get]
func (s *Server) listRentals(c *gin.Context) {
	list, err := s.svc.Rentals.List(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Book a rental
// @Tags rentals
// @Accept json
// @Produce json
// @Param input body domain.Rental true "Rental"
// @Success 201 {object} domain.Rental
// @Failure 400 {object} map[string]string
// @Router /rentals [post]
func (s *Server) createRental(c *gin.Context) {
	var req domain.Rental
	if !bindForm(c, &req) {
		return
	}
	r, err := s.svc.Rentals.Create(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// @Summary Get rental by id
// @Tags rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} domain.Rental
// @Failure 404 {object} map[string]string
// @Router /rentals/{id} [get]
func (s *Server) getRental(c *gin.Context) {
	r, err := s.svc.Rentals.Get(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary Update rental
// @Description Partial update; status may only move from Rented to Returned
// @Tags rentals
// @Accept json
// @Produce json
// @Param id path string true "Rental ID"
// @Param input body map[string]interface{} true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /rentals/{id} [put]
func (s *Server) updateRental(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	out, err := s.svc.Rentals.Update(c, c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Delete rental
// @Tags rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /rentals/{id} [delete]
func (s *Server) deleteRental(c *gin.Context) {
	if err := s.svc.Rentals.Delete(c, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rental deleted"})
}

// @Summary Mark rental returned
// @Tags rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} domain.Rental
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /rentals/{id}/return [post]
func (s *Server) returnRental(c *gin.Context) {
	r, err := s.svc.Rentals.Return(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary Rental settlement
// @Description Balance due after the advance; nothing is stored
// @Tags rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} service.Settlement
// @Failure 404 {object} map[string]string
// @Router /rentals/{id}/settlement [get]
func (s *Server) rentalSettlement(c *gin.Context) {
	st, err := s.svc.Rentals.Settlement(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
