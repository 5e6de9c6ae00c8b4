package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

// respondErr maps domain failures to status codes. ContentionError gets 503
// with Retry-After so callers back off and retry.
func respondErr(c *gin.Context, err error) {
	var (
		stateErr   *domain.StateTransitionError
		balanceErr *domain.InsufficientBalanceError
		capErr     *domain.CapacityInvariantViolation
		inputErr   *domain.SettlementInputMissingError
	)
	switch {
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &balanceErr):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.As(err, &capErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrContention):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRegistrationNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRegistrationClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func actingUser(c *gin.Context) string {
	sub, _ := c.Get("sub")
	userID, _ := sub.(string)
	return userID
}
