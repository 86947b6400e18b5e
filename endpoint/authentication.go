package endpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/healplus/wound-care-api/config"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/util"
	"gorm.io/gorm"
)

const (
	sessionDuration   = 24 * time.Hour
	maxFailedAttempts = 5
	accountLockPeriod = 15 * time.Minute
)

type loginRequest struct {
	Email    string `json:"email" binding:"required" example:"enfermeira@clinica.com"`
	Password string `json:"password" binding:"required" example:"secret"`
}

type loginContext struct {
	c    *gin.Context
	db   *gorm.DB
	req  loginRequest
	user model.User
}

func fetchUserByEmail(db *gorm.DB, email string) (model.User, error) {
	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	return user, err
}

// ensureAccountNotLocked rejects logins while the lockout window is open.
func (lc *loginContext) ensureAccountNotLocked() bool {
	if lc.user.LockedUntil != nil && lc.user.LockedUntil.After(time.Now()) {
		util.LogLoginFailure(lc.req.Email, lc.c.ClientIP(), lc.c.Request.UserAgent(), "account locked")
		util.CallUserNotAuthorized(lc.c, util.APIErrorParams{
			Msg: "Account temporarily locked due to repeated failed logins",
			Err: fmt.Errorf("account locked until %s", lc.user.LockedUntil.Format(time.RFC3339)),
		})
		return false
	}
	return true
}

// ensurePasswordMatches verifies the password and maintains the failed
// attempt counter, locking the account after too many misses.
func (lc *loginContext) ensurePasswordMatches() bool {
	if util.HashPassword(lc.req.Password) == lc.user.Password {
		if lc.user.FailedAttempts != 0 || lc.user.LockedUntil != nil {
			lc.db.Model(&lc.user).Updates(map[string]interface{}{
				"failed_attempts": 0,
				"locked_until":    nil,
			})
		}
		return true
	}

	lc.user.FailedAttempts++
	updates := map[string]interface{}{"failed_attempts": lc.user.FailedAttempts}
	if lc.user.FailedAttempts >= maxFailedAttempts {
		lockedUntil := time.Now().Add(accountLockPeriod)
		updates["locked_until"] = lockedUntil
		lc.revokeActiveSessions()
		util.LogAccountLocked(lc.user.ID, lc.user.Email, lc.c.ClientIP(), "too many failed login attempts")
	}
	lc.db.Model(&lc.user).Updates(updates)

	util.LogLoginFailure(lc.req.Email, lc.c.ClientIP(), lc.c.Request.UserAgent(), "wrong password")
	util.CallUserNotAuthorized(lc.c, util.APIErrorParams{
		Msg: "Wrong email or password",
		Err: fmt.Errorf("invalid credentials"),
	})
	return false
}

// revokeActiveSessions kills the user's live sessions when a lockout
// triggers: the session rows go, and the Redis cache entries with them.
func (lc *loginContext) revokeActiveSessions() {
	lc.db.Where("user_id = ?", lc.user.ID).Delete(&model.Session{})
	_ = util.InvalidateUserSessions(lc.user.ID)
}

func buildSessionToken(user model.User, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role_id": user.RoleID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(util.GetJWTSecretByte())
}

// cacheSession mirrors the session into Redis for fast middleware lookups.
// Best-effort: the sessions table remains the source of truth.
func cacheSession(user model.User, token string, expiresAt time.Time) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value := fmt.Sprintf("%d:%d", user.ID, user.RoleID)
	rdb.Set(ctx, fmt.Sprintf("session:%s", token), value, time.Until(expiresAt))
	_ = util.AddSessionToUserSet(user.ID, token)
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates a professional and returns a session token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Credentials"
// @Success      200 {object} util.APIResponse "Logged in"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Wrong credentials or account locked"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req loginRequest
	if !bindJSONOrRespond(c, &req, "Invalid login request") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, err := fetchUserByEmail(db, req.Email)
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "unknown email")
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Wrong email or password",
			Err: fmt.Errorf("invalid credentials"),
		})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up user", Err: err})
		return
	}

	lc := &loginContext{c: c, db: db, req: req, user: user}
	if !lc.ensureAccountNotLocked() {
		return
	}
	if !lc.ensurePasswordMatches() {
		return
	}

	expiresAt := time.Now().Add(sessionDuration)
	token, err := buildSessionToken(user, expiresAt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create session token", Err: err})
		return
	}

	session := model.Session{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    expiresAt,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if err := db.Create(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create session", Err: err})
		return
	}

	cacheSession(user, token, expiresAt)
	util.LogLoginSuccess(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Logged in",
		Data: map[string]interface{}{
			"session_token": token,
			"expires_at":    expiresAt,
			"name":          user.Name,
			"role_id":       user.RoleID,
		},
	})
}

// Logout godoc
// @Summary      Log out
// @Description  Invalidates the current session token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logged out"
// @Failure      401 {object} util.APIResponse "Not authenticated"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /logout [post]
func Logout(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	sessionToken := c.GetHeader("session-token")
	if err := db.Where("session_token = ?", sessionToken).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to invalidate session", Err: err})
		return
	}

	if rdb := config.GetRedisClient(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		rdb.Del(ctx, fmt.Sprintf("session:%s", sessionToken))
	}
	_ = util.RemoveSessionTokenFromUserSet(userID, sessionToken)

	var user model.User
	if err := db.First(&user, userID).Error; err == nil {
		util.LogLogout(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logged out"})
}

type signupRequest struct {
	Name     string `json:"name" binding:"required" example:"Joana Pereira"`
	Email    string `json:"email" binding:"required" example:"joana@clinica.com"`
	Password string `json:"password" binding:"required" example:"secret"`
	COREN    string `json:"coren" example:"123456-SP"`
}

// Signup godoc
// @Summary      Register a professional account
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body signupRequest true "Account information"
// @Success      200 {object} util.APIResponse "Account created"
// @Failure      400 {object} util.APIResponse "Invalid request or email taken"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSONOrRespond(c, &req, "Invalid signup request") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if _, err := fetchUserByEmail(db, req.Email); err == nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Email already registered",
			Err: fmt.Errorf("duplicate email"),
		})
		return
	}

	user := model.User{
		Name:     util.NormalizeName(req.Name),
		Email:    req.Email,
		Password: util.HashPassword(req.Password),
		RoleID:   model.RoleProfessional,
		COREN:    req.COREN,
	}
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create account", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Account created",
		Data: map[string]interface{}{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}
