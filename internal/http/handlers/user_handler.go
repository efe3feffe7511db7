// Member HTTP handlers.
//
//   - POST /users       (register)
//   - GET  /users/{id}  (profile)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/go-library-backend/internal/services"
)

// RegisterRequest is the JSON payload for registering a member.
type RegisterRequest struct {
	// Username is the unique handle (3–50 chars).
	Username string `json:"username" binding:"required,min=3,max=50" example:"jdoe"`
	// Email is the member's contact address.
	Email string `json:"email" binding:"required,email" example:"jdoe@example.com"`
	// Password is the clear-text password (8–72 chars); only its hash is stored.
	Password string `json:"password" binding:"required,min=8,max=72" example:"hunter2hunter2"`
	// FullName is the member's display name.
	FullName string `json:"full_name" example:"Jane Doe"`
	// Address is an optional postal address.
	Address string `json:"address" example:"1 Library Lane"`
	// Phone is an optional phone number.
	Phone string `json:"phone" example:"+30 210 0000000"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a member
// @Description Creates a member account; the password is stored as a bcrypt hash and never returned.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password (8–72 chars) required")
		return
	}

	u, err := h.userSvc.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUsername) {
			fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a member profile
// @Tags        Users
// @Produce     json
//
// @Param       id  path  int  true  "Member ID"  example(7)
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Member not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}
