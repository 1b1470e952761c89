package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/arnavshah/timesheet-grid-go/pkg/auth"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/arnavshah/timesheet-grid-go/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Store  *store.Store
	Issuer *auth.Issuer
	Log    logrus.FieldLogger
}

// Router builds the gin engine serving the timesheet API under /api
func (h *Handler) Router() *gin.Engine {
	if h.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		h.Log = l
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Timesheet API stub",
			"version": "1.0.0",
		})
	})

	r.POST("/api/auth/login", h.Login)

	api := r.Group("/api")
	api.Use(h.AuthMiddleware())
	{
		api.GET("/timesheet/:dept/:month", h.failpoint("timesheet"), h.GetTimesheet)
		api.GET("/work-codes", h.failpoint("work-codes"), h.ListWorkCodes)
		api.GET("/departments", h.failpoint("departments"), h.ListDepartments)
		api.POST("/timesheet/update", h.failpoint("update"), h.UpdateTimesheet)
		api.GET("/export/t13/:dept/:month", h.failpoint("export"), h.ExportT13)
	}
	return r
}

// AuthMiddleware verifies the JWT bearer token
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := h.Issuer.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			c.Abort()
			return
		}
		if _, ok := h.Store.User(claims.Username); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// failpoint answers with a queued failure status instead of running the route
func (h *Handler) failpoint(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if status, ok := h.Store.TakeFailure(op); ok {
			h.Log.WithFields(logrus.Fields{"op": op, "status": status}).Debug("handlers.failpoint")
			c.JSON(status, gin.H{"detail": "injected failure"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Login handles the OAuth2 password form login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `form:"username" binding:"required"`
		Password string `form:"password" binding:"required"`
	}

	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	user, ok := h.Store.User(req.Username)
	if !ok || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}

	token, err := h.Issuer.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// GetTimesheet returns the roster and assignment matrix of a department month
func (h *Handler) GetTimesheet(c *gin.Context) {
	deptID, ok := deptParam(c)
	if !ok {
		return
	}

	ts, err := h.Store.Timesheet(deptID, c.Param("month"))
	if errors.Is(err, store.ErrInvalidMonth) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid month format. Expected YYYY-MM"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ts)
}

// ListWorkCodes returns the work code catalog
func (h *Handler) ListWorkCodes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.WorkCodes())
}

// ListDepartments returns every department
func (h *Handler) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Departments())
}

// UpdateTimesheet applies a batch of grid changes
func (h *Handler) UpdateTimesheet(c *gin.Context) {
	var req models.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	n, err := h.Store.Apply(req.Updates)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	h.Log.WithFields(logrus.Fields{
		"username": c.GetString("username"),
		"updated":  n,
	}).Info("handlers.UpdateTimesheet")
	c.JSON(http.StatusOK, models.UpdateResponse{Status: "success", UpdatedCount: n})
}

func deptParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("dept"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "department id must be an integer"})
		return 0, false
	}
	return id, true
}
