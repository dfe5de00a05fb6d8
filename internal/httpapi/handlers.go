package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/account"
	"schoolportal/internal/attendance"
	"schoolportal/internal/auth"
	"schoolportal/internal/queue"
)

// loginFailedMsg deliberately covers both unknown portal ids and wrong
// passwords so responses cannot be used to enumerate accounts.
const loginFailedMsg = "Invalid Portal ID or Password"

type handlers struct {
	deps Deps
}

func (h handlers) login(c *gin.Context) {
	var req struct {
		PortalID string `json:"portal_id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "portal_id and password are required"})
		return
	}

	acc, token, err := h.deps.Auth.Login(c.Request.Context(), req.PortalID, req.Password)
	switch {
	case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrInvalidCredentials):
		loginsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": loginFailedMsg})
		return
	case errors.Is(err, auth.ErrAccessDenied):
		loginsTotal.WithLabelValues("denied").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "account access disabled, contact support"})
		return
	case err != nil:
		loginsTotal.WithLabelValues("error").Inc()
		log.Printf("login failed for %s: %v", req.PortalID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	auth.SetSessionCookie(c, token, h.deps.Auth.TTLSeconds())
	c.JSON(http.StatusOK, gin.H{"id": acc.ID, "role": acc.Role})
}

func (h handlers) logout(c *gin.Context) {
	auth.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// refreshSession re-reads the account and reissues the cookie so a role
// change does not have to wait for the old token to expire.
func (h handlers) refreshSession(c *gin.Context) {
	claims, ok := auth.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	acc, token, err := h.deps.Auth.Refresh(c.Request.Context(), claims.ID)
	switch {
	case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrAccessDenied):
		auth.ClearSessionCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session no longer valid"})
		return
	case err != nil:
		log.Printf("session refresh failed for %s: %v", claims.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	auth.SetSessionCookie(c, token, h.deps.Auth.TTLSeconds())
	c.JSON(http.StatusOK, gin.H{"id": acc.ID, "role": acc.Role})
}

func (h handlers) studentHome(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	c.JSON(http.StatusOK, gin.H{"section": "student", "id": claims.ID})
}

func (h handlers) teacherHome(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	c.JSON(http.StatusOK, gin.H{"section": "teacher", "id": claims.ID})
}

func (h handlers) adminHome(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	c.JSON(http.StatusOK, gin.H{"section": "admin", "id": claims.ID})
}

func (h handlers) markAttendance(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		marksTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": attendance.ErrMissingStatus.Error()})
		return
	}

	res, err := h.deps.Attendance.Mark(c.Request.Context(), claims.ID, attendance.Status(req.Status), req.Reason)
	var bferr *attendance.BackfillError
	switch {
	case errors.Is(err, attendance.ErrMissingStatus):
		marksTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, attendance.ErrAlreadyMarked):
		marksTotal.WithLabelValues("already_marked").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, attendance.ErrWindowClosed), errors.Is(err, attendance.ErrDisabled):
		marksTotal.WithLabelValues("window_closed").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.As(err, &bferr):
		// The day's mark is committed; only the catch-up sweep aborted.
		// Report the partial failure instead of pretending nothing happened.
		marksTotal.WithLabelValues("backfill_failed").Inc()
		log.Printf("backfill for %s aborted: %v", claims.ID, bferr)
		h.publishMark(c, claims.ID, res)
		c.JSON(http.StatusOK, gin.H{
			"message":    "attendance marked, history backfill incomplete",
			"status":     res.Status,
			"backfilled": bferr.Inserted,
		})
		return
	case err != nil:
		marksTotal.WithLabelValues("error").Inc()
		log.Printf("mark attendance for %s failed: %v", claims.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}

	if res.Created {
		marksTotal.WithLabelValues("created").Inc()
	} else {
		marksTotal.WithLabelValues("updated").Inc()
	}
	h.publishMark(c, claims.ID, res)
	c.JSON(http.StatusOK, gin.H{
		"message":    "attendance marked",
		"status":     res.Status,
		"backfilled": res.Backfilled,
	})
}

func (h handlers) publishMark(c *gin.Context, studentID string, res attendance.Result) {
	if h.deps.Queue == nil {
		return
	}
	body := studentID + "|" + res.Date + "|" + string(res.Status)
	if err := h.deps.Queue.Publish(c.Request.Context(), queue.Message{Type: "mark", Body: []byte(body)}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

func (h handlers) listOwnAttendance(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	h.listAttendance(c, claims.ID)
}

func (h handlers) studentAttendance(c *gin.Context) {
	h.listAttendance(c, c.Param("studentID"))
}

func (h handlers) listAttendance(c *gin.Context, studentID string) {
	recs, err := h.deps.Attendance.List(c.Request.Context(), studentID)
	if errors.Is(err, attendance.ErrNoRecords) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("list attendance for %s failed: %v", studentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}

	resp := gin.H{"records": recs}
	if h.deps.Summaries != nil {
		if sum, err := h.deps.Summaries.GetSummary(c.Request.Context(), studentID); err == nil && sum != nil {
			resp["summary"] = sum
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h handlers) getSettings(c *gin.Context) {
	set, err := h.deps.Attendance.Settings(c.Request.Context())
	if err != nil {
		log.Printf("load attendance settings failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h handlers) putSettings(c *gin.Context) {
	var set attendance.Settings
	if err := c.ShouldBindJSON(&set); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	if err := h.deps.Attendance.UpdateSettings(c.Request.Context(), set); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h handlers) createAccount(c *gin.Context) {
	var req struct {
		PortalID string `json:"portal_id" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
		Verified bool   `json:"verified"`
		Active   bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := account.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("hash password failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	acc := &account.Account{
		PortalID:     req.PortalID,
		PasswordHash: hash,
		Role:         role,
		Verified:     req.Verified,
		Active:       req.Active,
	}
	if err := h.deps.Accounts.Create(c.Request.Context(), acc); err != nil {
		log.Printf("create account %s failed: %v", req.PortalID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": acc.ID, "portal_id": acc.PortalID, "role": acc.Role})
}

// changeRole updates the role snapshot the next credential will carry.
// Outstanding tokens keep the old role until expiry or /session/refresh.
func (h handlers) changeRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := account.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	id := c.Param("id")
	err := h.deps.Accounts.UpdateRole(c.Request.Context(), id, role)
	if errors.Is(err, account.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		log.Printf("update role for %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "role": role, "note": "takes effect at next login or session refresh"})
}
