package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"referral-platform/internal/models"
	"referral-platform/internal/services"
)

type AdminHandler struct {
	withdrawalService *services.WithdrawalService
	premiumService    *services.PremiumService
}

func NewAdminHandler(withdrawalService *services.WithdrawalService, premiumService *services.PremiumService) *AdminHandler {
	return &AdminHandler{
		withdrawalService: withdrawalService,
		premiumService:    premiumService,
	}
}

// ApproveWithdrawal transitions a pending request to approved and debits
// the user's balance
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	request, err := h.withdrawalService.Approve(c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    request,
	})
}

// DenyWithdrawal transitions a pending request to denied
func (h *AdminHandler) DenyWithdrawal(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// Reason is optional; ignore binding errors for an empty body.
	_ = c.ShouldBindJSON(&req)

	request, err := h.withdrawalService.Deny(c.Param("id"), req.Reason)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    request,
	})
}

// ListWithdrawals returns one of the status queues
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	status := c.DefaultQuery("status", models.WithdrawalPending)

	requests, err := h.withdrawalService.ListByStatus(status)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests,
		"count":   len(requests),
	})
}

// AssignPremium injects an administrative credit, freezing the account when
// the amount exceeds the current balance
func (h *AdminHandler) AssignPremium(c *gin.Context) {
	var req struct {
		UserID   uint   `json:"user_id" binding:"required"`
		Amount   string `json:"amount" binding:"required"`
		Position int    `json:"position" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	result, err := h.premiumService.Assign(req.UserID, amount, req.Position)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// RevokePremium clears the user's active assignment
func (h *AdminHandler) RevokePremium(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	user, err := h.premiumService.Revoke(uint(userID))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UnfreezeAccount releases a frozen account
func (h *AdminHandler) UnfreezeAccount(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	user, err := h.premiumService.Unfreeze(uint(userID))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
