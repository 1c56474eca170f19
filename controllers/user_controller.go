package controllers

import (
	"net/http"

	"github.com/college-canteen/canteen-api/middleware"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
)

// CreateUserRequest represents the request body for creating an account
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	CollegeID  string `json:"college_id" binding:"required,max=50"`
	Role       string `json:"role" binding:"required,role"`
	Status     string `json:"status" binding:"omitempty,user_status"`
	Department string `json:"department" binding:"max=100"`
	Password   string `json:"password" binding:"omitempty,min=6"`
}

// UpdateUserRequest represents the request body for changing an account
// All fields are optional - only provided fields will be updated
type UpdateUserRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email      *string `json:"email" binding:"omitempty,email"`
	CollegeID  *string `json:"college_id" binding:"omitempty,min=1,max=50"`
	Role       *string `json:"role" binding:"omitempty,role"`
	Status     *string `json:"status" binding:"omitempty,user_status"`
	Department *string `json:"department" binding:"omitempty,max=100"`
}

// ResetPasswordRequest represents the request body for an administrator password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// CreateUser handles POST /api/users (admin)
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := userService().Create(services.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		CollegeID:  req.CollegeID,
		Role:       models.Role(req.Role),
		Status:     models.UserStatus(req.Status),
		Department: req.Department,
		Password:   req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

// ListUsers handles GET /api/users - filtered by ?role=, ?status= and ?search=
func ListUsers(c *gin.Context) {
	filter := services.UserFilter{
		Role:   models.Role(c.Query("role")),
		Status: models.UserStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	users, pagination, err := userService().List(filter, pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Users retrieved successfully",
		"users":      users,
		"pagination": pagination,
	})
}

// GetUser handles GET /api/users/:id
func GetUser(c *gin.Context) {
	id, ok := uintParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := userService().Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User retrieved successfully",
		"user":    user,
	})
}

// UpdateUser handles PUT /api/users/:id
func UpdateUser(c *gin.Context) {
	id, ok := uintParam(c, "id", "user")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	input := services.UpdateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		CollegeID:  req.CollegeID,
		Department: req.Department,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		input.Role = &role
	}
	if req.Status != nil {
		status := models.UserStatus(*req.Status)
		input.Status = &status
	}

	user, err := userService().Update(id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser handles DELETE /api/users/:id
func DeleteUser(c *gin.Context) {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}
	id, ok := uintParam(c, "id", "user")
	if !ok {
		return
	}

	if err := userService().Delete(actor.ID, id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted successfully",
	})
}

// ToggleUserStatus handles PATCH /api/users/:id/toggle - activates or deactivates an account
func ToggleUserStatus(c *gin.Context) {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}
	id, ok := uintParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := userService().ToggleStatus(actor.ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "User deactivated successfully"
	if user.IsActive() {
		message = "User activated successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"user":    user,
	})
}

// ResetUserPassword handles POST /api/users/:id/reset-password
func ResetUserPassword(c *gin.Context) {
	id, ok := uintParam(c, "id", "user")
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := userService().ResetPassword(id, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successfully",
	})
}

// GetUserStats handles GET /api/users/stats/overview
func GetUserStats(c *gin.Context) {
	stats, err := userService().Stats()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User statistics retrieved successfully",
		"stats":   stats,
	})
}
