package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/middleware"
	"github.com/clubware/billing-service/internal/models"
)

// AccountManager defines the account operations used by AccountHandler.
type AccountManager interface {
	List(ctx context.Context) ([]models.Account, error)
	GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, guid uuid.UUID, account *models.Account) (*models.Account, error)
	DeleteByGuid(ctx context.Context, guid uuid.UUID) error
	ListMembers(ctx context.Context, accountGuid uuid.UUID) ([]models.Member, error)
	DeleteNonPrimaryMembers(ctx context.Context, accountGuid uuid.UUID) (int64, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accounts AccountManager
}

func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type CreateAccountRequest struct {
	LocationGuid  string    `json:"locationGuid" validate:"required,uuid"`
	AccountType   string    `json:"accountType" validate:"required"`
	Status        string    `json:"status" validate:"omitempty,oneof=active pending_cancel cancelled"`
	PaymentAmount float64   `json:"paymentAmount" validate:"gte=0"`
	PendCancel    bool      `json:"pendCancel"`
	PeriodStart   time.Time `json:"periodStartUtc"`
	PeriodEnd     time.Time `json:"periodEndUtc"`
}

type UpdateAccountRequest struct {
	Status        string    `json:"status" validate:"omitempty,oneof=active pending_cancel cancelled"`
	AccountType   string    `json:"accountType"`
	PaymentAmount float64   `json:"paymentAmount" validate:"gte=0"`
	PendCancel    bool      `json:"pendCancel"`
	PeriodStart   time.Time `json:"periodStartUtc"`
	PeriodEnd     time.Time `json:"periodEndUtc"`
	NextBilling   time.Time `json:"nextBillingUtc"`
}

type ListAccountsResponse struct {
	Accounts []models.Account `json:"accounts"`
}

type ListMembersResponse struct {
	Members []models.Member `json:"members"`
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

// GetAccount returns 200 with the account, or 200 with an empty body when
// the identifier is unknown. Absence is not an error on this endpoint.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	account, err := h.accounts.GetByGuid(c.Request.Context(), guid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	locationGuid, _ := uuid.Parse(req.LocationGuid)

	account, err := h.accounts.Create(c.Request.Context(), &models.Account{
		LocationGuid:   locationGuid,
		AccountType:    req.AccountType,
		Status:         models.AccountStatus(req.Status),
		PaymentAmount:  req.PaymentAmount,
		PendCancel:     req.PendCancel,
		PeriodStartUtc: req.PeriodStart,
		PeriodEndUtc:   req.PeriodEnd,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), guid, &models.Account{
		Status:         models.AccountStatus(req.Status),
		AccountType:    req.AccountType,
		PaymentAmount:  req.PaymentAmount,
		PendCancel:     req.PendCancel,
		PeriodStartUtc: req.PeriodStart,
		PeriodEndUtc:   req.PeriodEnd,
		NextBillingUtc: req.NextBilling,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	if err := h.accounts.DeleteByGuid(c.Request.Context(), guid); err != nil {
		respondError(c, err)
		return
	}
	if operatorID, ok := middleware.GetOperatorID(c); ok {
		log.Printf("Account %s deleted by %s", guid, operatorID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func (h *AccountHandler) ListAccountMembers(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	members, err := h.accounts.ListMembers(c.Request.Context(), guid)
	if err != nil {
		respondError(c, err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	c.JSON(http.StatusOK, ListMembersResponse{Members: members})
}

func (h *AccountHandler) DeleteNonPrimaryMembers(c *gin.Context) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account identifier")
		return
	}

	removed, err := h.accounts.DeleteNonPrimaryMembers(c.Request.Context(), guid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"membersRemoved": removed})
}
