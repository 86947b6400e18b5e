package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healplus/wound-care-api/util"
)

// ValidateToken godoc
// @Summary      Validate the current session token
// @Description  Confirms the session-token header maps to a live session and returns the session's user and role
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Token is valid"
// @Failure      401 {object} util.APIResponse "Token missing, unknown or expired"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token is missing in 'session-token' header",
			Err: fmt.Errorf("session token required"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var result struct {
		UserID uint
		RoleID uint32
		Name   string
		Email  string
	}
	err := db.Table("sessions").
		Select("sessions.user_id, users.role_id, users.name, users.email").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
		First(&result).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session not found or has expired",
			Err: fmt.Errorf("invalid session token"),
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Token is valid",
		Data: map[string]interface{}{
			"user_id": result.UserID,
			"role_id": result.RoleID,
			"name":    result.Name,
			"email":   result.Email,
		},
	})
}
