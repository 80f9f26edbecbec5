package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"weatherfav/internal/auth"
	"weatherfav/internal/domain"
	"weatherfav/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	favorites service.FavoriteService
	cookies   *auth.CookieCodec
	bearer    auth.Strategy
	session   auth.Strategy
	logger    logrus.FieldLogger
}

// Strategies groups the credential strategies routes can require.
type Strategies struct {
	Bearer  auth.Strategy
	Session auth.Strategy
	Cookies *auth.CookieCodec
}

func NewHandler(users service.UserService, favorites service.FavoriteService, strategies Strategies, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:     users,
		favorites: favorites,
		cookies:   strategies.Cookies,
		bearer:    strategies.Bearer,
		session:   strategies.Session,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	bearerOnly := h.requireAuth(auth.NewGate(h.bearer))
	bearerOrSession := h.requireAuth(auth.NewGate(h.bearer, h.session))

	api := router.Group("/api")
	{
		api.POST("/signup", h.signup)
		api.POST("/login", h.login)
		api.GET("/logout", bearerOrSession, h.logout)

		api.GET("/validate-token", bearerOnly, h.validateToken)

		api.POST("/favorites", bearerOnly, h.addFavorite)
		api.GET("/favorites", bearerOnly, h.listFavorites)
		api.DELETE("/favorites/:id", bearerOnly, h.removeFavorite)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type addFavoriteRequest struct {
	City string `json:"city" binding:"required"`
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type FavoriteResponse struct {
	ID        int64  `json:"id"`
	City      string `json:"city"`
	UserID    int64  `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, username, email and password are required"})
		return
	}

	user, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "email or username already registered"})
		default:
			h.internalError(c, "signup", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created",
		"user":    userToResponse(*user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.internalError(c, "login", err)
		return
	}

	if err := h.cookies.Write(c.Writer, result.SessionKey); err != nil {
		h.internalError(c, "write session cookie", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": result.Token})
}

// logout ends the cookie session, if any. A bearer token presented here
// stays valid until it expires.
func (h *Handler) logout(c *gin.Context) {
	principal, _ := principalFrom(c)

	key := principal.SessionKey
	if key == "" {
		key, _ = h.cookies.Read(c.Request)
	}

	if err := h.users.Logout(c.Request.Context(), key); err != nil {
		h.internalError(c, "logout", err)
		return
	}

	h.cookies.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) validateToken(c *gin.Context) {
	principal, _ := principalFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "token valid",
		"user":    userToResponse(principal.User),
	})
}

func (h *Handler) addFavorite(c *gin.Context) {
	principal, _ := principalFrom(c)

	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	fav, err := h.favorites.Add(c.Request.Context(), principal.User.ID, req.City)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, "add favorite", err)
		return
	}

	c.JSON(http.StatusCreated, favoriteToResponse(*fav))
}

func (h *Handler) listFavorites(c *gin.Context) {
	principal, _ := principalFrom(c)

	favs, err := h.favorites.List(c.Request.Context(), principal.User.ID)
	if err != nil {
		h.internalError(c, "list favorites", err)
		return
	}

	resp := make([]FavoriteResponse, len(favs))
	for i := range favs {
		resp[i] = favoriteToResponse(favs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) removeFavorite(c *gin.Context) {
	principal, _ := principalFrom(c)

	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid favorite id"})
		return
	}

	if err := h.favorites.Remove(c.Request.Context(), principal.User.ID, id); err != nil {
		if errors.Is(err, service.ErrFavoriteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "favorite not found"})
			return
		}
		h.internalError(c, "remove favorite", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// internalError logs the cause and answers with a body that carries no detail.
func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.WithError(err).WithField("op", op).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func favoriteToResponse(fav domain.Favorite) FavoriteResponse {
	return FavoriteResponse{
		ID:        fav.ID,
		City:      fav.City,
		UserID:    fav.UserID,
		CreatedAt: fav.CreatedAt.Format(time.RFC3339),
	}
}
