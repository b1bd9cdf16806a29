package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/middleware"
	"github.com/clubware/billing-service/internal/models"
)

// LocationManager defines the location operations used by LocationHandler.
type LocationManager interface {
	List(ctx context.Context) ([]models.Location, error)
	GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Location, error)
	Create(ctx context.Context, location *models.Location) (*models.Location, error)
	DeleteByGuid(ctx context.Context, guid uuid.UUID) error
}

type LocationHandler struct {
	locations LocationManager
}

func NewLocationHandler(locations LocationManager) *LocationHandler {
	return &LocationHandler{locations: locations}
}

type CreateLocationRequest struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Locale     string `json:"locale"`
	PostalCode string `json:"postalCode"`
}

type ListLocationsResponse struct {
	Locations []models.Location `json:"locations"`
}

func (h *LocationHandler) ListLocations(c *gin.Context) {
	locations, err := h.locations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}
	c.JSON(http.StatusOK, ListLocationsResponse{Locations: locations})
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid location identifier")
		return
	}

	location, err := h.locations.GetByGuid(c.Request.Context(), guid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	location, err := h.locations.Create(c.Request.Context(), &models.Location{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		Locale:     req.Locale,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid location identifier")
		return
	}

	if err := h.locations.DeleteByGuid(c.Request.Context(), guid); err != nil {
		respondError(c, err)
		return
	}
	if operatorID, ok := middleware.GetOperatorID(c); ok {
		log.Printf("Location %s deleted by %s", guid, operatorID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted"})
}
