package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"referral-platform/internal/auth"
	"referral-platform/internal/services"
)

type BonusHandler struct {
	bonusService *services.BonusService
}

func NewBonusHandler(bonusService *services.BonusService) *BonusHandler {
	return &BonusHandler{bonusService: bonusService}
}

// ListBonuses resolves the bonus catalog for the user
func (h *BonusHandler) ListBonuses(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bonuses, err := h.bonusService.ListBonuses(userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": "Failed to list bonuses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bonuses,
	})
}

// ClaimBonus grants a one-time catalog bonus
func (h *BonusHandler) ClaimBonus(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.bonusService.Claim(userID, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
