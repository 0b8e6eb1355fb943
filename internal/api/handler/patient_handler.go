package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

// PatientHandler exposes the patient roster to clinical staff.
type PatientHandler struct {
	service ports.AccountService
}

func NewPatientHandler(service ports.AccountService) *PatientHandler {
	return &PatientHandler{service: service}
}

// List handles GET /api/patients.
//
// @Summary      List active patients
// @Tags         patients
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/patients [get]
func (h *PatientHandler) List(c echo.Context) error {
	active := true
	patients, err := h.service.List(c.Request().Context(), ports.ListAccountsFilter{
		Role:   domain.RolePatient,
		Active: &active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(patients))
}
