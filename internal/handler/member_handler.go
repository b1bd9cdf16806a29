package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/middleware"
	"github.com/clubware/billing-service/internal/models"
)

// MemberManager defines the member operations used by MemberHandler.
type MemberManager interface {
	List(ctx context.Context) ([]models.Member, error)
	GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) (*models.Member, error)
	DeleteByGuid(ctx context.Context, guid uuid.UUID) error
}

// MemberHandler handles member-related HTTP requests.
type MemberHandler struct {
	members MemberManager
}

func NewMemberHandler(members MemberManager) *MemberHandler {
	return &MemberHandler{members: members}
}

type CreateMemberRequest struct {
	AccountGuid string    `json:"accountGuid" validate:"required,uuid"`
	FirstName   string    `json:"firstName" validate:"required"`
	LastName    string    `json:"lastName" validate:"required"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Locale      string    `json:"locale"`
	PostalCode  string    `json:"postalCode"`
	Primary     bool      `json:"primary"`
	JoinedDate  time.Time `json:"joinedDateUtc"`
}

type ListAllMembersResponse struct {
	Members []models.Member `json:"members"`
}

func (h *MemberHandler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	c.JSON(http.StatusOK, ListAllMembersResponse{Members: members})
}

// GetMember returns 200 with the member, or 200 with an empty body when the
// identifier is unknown.
func (h *MemberHandler) GetMember(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid member identifier")
		return
	}

	member, err := h.members.GetByGuid(c.Request.Context(), guid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) CreateMember(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	accountGuid, _ := uuid.Parse(req.AccountGuid)

	member, err := h.members.Create(c.Request.Context(), &models.Member{
		AccountGuid:   accountGuid,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Address:       req.Address,
		City:          req.City,
		Locale:        req.Locale,
		PostalCode:    req.PostalCode,
		Primary:       req.Primary,
		JoinedDateUtc: req.JoinedDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) DeleteMember(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid member identifier")
		return
	}

	if err := h.members.DeleteByGuid(c.Request.Context(), guid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member deleted"})
}
