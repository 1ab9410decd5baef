package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"referral-platform/internal/auth"
	"referral-platform/internal/services"
)

type ProductHandler struct {
	cascadeService *services.CascadeService
	userService    *services.UserService
}

func NewProductHandler(cascadeService *services.CascadeService, userService *services.UserService) *ProductHandler {
	return &ProductHandler{cascadeService: cascadeService, userService: userService}
}

// SubmitProduct runs the commission cascade for a value-generating event
func (h *ProductHandler) SubmitProduct(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ProductName  string `json:"product_name" binding:"required"`
		ProductValue string `json:"product_value" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value, err := decimal.NewFromString(req.ProductValue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_value"})
		return
	}

	submission, err := h.cascadeService.Distribute(userID, req.ProductName, value)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": "Failed to reload user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"data":        submission,
		"user_earned": submission.UserEarned,
		"new_balance": user.Balance,
	})
}

// GetSubmissions returns the user's submission history
func (h *ProductHandler) GetSubmissions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	submissions, err := h.cascadeService.GetUserSubmissions(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    submissions,
		"count":   len(submissions),
	})
}
