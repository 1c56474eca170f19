package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/college-canteen/canteen-api/models"
	"gorm.io/gorm"
)

// CreateUserInput holds the fields an administrator supplies for a new account
type CreateUserInput struct {
	Name       string
	Email      string
	CollegeID  string
	Role       models.Role
	Status     models.UserStatus
	Department string
	Password   string
}

// UpdateUserInput holds optional account changes; nil fields are left alone
type UpdateUserInput struct {
	Name       *string
	Email      *string
	CollegeID  *string
	Role       *models.Role
	Status     *models.UserStatus
	Department *string
}

// UserFilter narrows the admin user listing
type UserFilter struct {
	Role   models.Role
	Status models.UserStatus
	Search string
}

// RoleCount is one row of the per-role breakdown
type RoleCount struct {
	Role  models.Role `json:"_id"`
	Count int64       `json:"count"`
}

// UserStats summarises the account base for the admin dashboard
type UserStats struct {
	TotalUsers    int64         `json:"totalUsers"`
	ActiveUsers   int64         `json:"activeUsers"`
	InactiveUsers int64         `json:"inactiveUsers"`
	UsersByRole   []RoleCount   `json:"usersByRole"`
	RecentUsers   []models.User `json:"recentUsers"`
}

// UserService implements administrator account management
type UserService struct {
	db              *gorm.DB
	sessions        SessionStore
	defaultPassword string
}

// NewUserService creates a new user service instance
func NewUserService(db *gorm.DB, sessions SessionStore, defaultPassword string) *UserService {
	return &UserService{db: db, sessions: sessions, defaultPassword: defaultPassword}
}

// Create adds an account, using the temporary default password when none is given
func (s *UserService) Create(input CreateUserInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.CollegeID = strings.TrimSpace(input.CollegeID)
	if input.Status == "" {
		input.Status = models.UserActive
	}
	if !input.Role.Valid() {
		return nil, ValidationError("Invalid role")
	}
	if !input.Status.Valid() {
		return nil, ValidationError("Invalid status")
	}

	taken, err := emailTaken(s.db, input.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ConflictError(CodeDuplicate, "Email already exists")
	}
	taken, err = collegeIDTaken(s.db, input.CollegeID, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ConflictError(CodeDuplicate, "College ID already exists")
	}

	password := input.Password
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		CollegeID:    input.CollegeID,
		Role:         input.Role,
		Status:       input.Status,
		Department:   input.Department,
		PasswordHash: hash,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// List returns a filtered, paginated page of accounts, newest first
func (s *UserService) List(filter UserFilter, page PageRequest) ([]models.User, Pagination, error) {
	page = page.Normalize(20)

	q := s.db.Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(college_id) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list users: %w", err)
	}
	return users, newPagination(page, total), nil
}

// Get loads one account
func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("User")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Update applies administrator changes to an account
func (s *UserService) Update(id uint, input UpdateUserInput) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			taken, err := emailTaken(s.db, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ConflictError(CodeDuplicate, "Email already exists")
			}
			updates["email"] = email
		}
	}
	if input.CollegeID != nil {
		collegeID := strings.TrimSpace(*input.CollegeID)
		if collegeID != user.CollegeID {
			taken, err := collegeIDTaken(s.db, collegeID, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ConflictError(CodeDuplicate, "College ID already exists")
			}
			updates["college_id"] = collegeID
		}
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ValidationError("Invalid role")
		}
		updates["role"] = *input.Role
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ValidationError("Invalid status")
		}
		updates["status"] = *input.Status
	}
	if input.Department != nil {
		updates["department"] = *input.Department
	}

	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if input.Role != nil || input.Status != nil {
		s.revokeSessions(user.ID)
	}
	return s.Get(id)
}

// Delete permanently removes an account; administrators cannot delete themselves
func (s *UserService) Delete(actorID, id uint) error {
	if actorID == id {
		return ValidationError("You cannot delete your own account")
	}
	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.revokeSessions(user.ID)
	return nil
}

// ToggleStatus flips an account between active and inactive
func (s *UserService) ToggleStatus(actorID, id uint) (*models.User, error) {
	if actorID == id {
		return nil, ValidationError("You cannot deactivate your own account")
	}
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	next := models.UserInactive
	if user.Status == models.UserInactive {
		next = models.UserActive
	}
	if err := s.db.Model(user).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if next == models.UserInactive {
		s.revokeSessions(user.ID)
	}
	return s.Get(id)
}

// ResetPassword sets a new password without knowing the old one
func (s *UserService) ResetPassword(id uint, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ValidationError("Password must be at least %d characters", minPasswordLength)
	}
	user, err := s.Get(id)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	s.revokeSessions(user.ID)
	return nil
}

// Stats returns totals, the per-role breakdown and the five newest accounts
func (s *UserService) Stats() (*UserStats, error) {
	stats := &UserStats{}

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.Model(&models.User{}).Where("status = ?", models.UserActive).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers

	if err := s.db.Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Order("role").
		Scan(&stats.UsersByRole).Error; err != nil {
		return nil, fmt.Errorf("failed to group users by role: %w", err)
	}

	if err := s.db.Order("created_at DESC").Limit(5).Find(&stats.RecentUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent users: %w", err)
	}
	return stats, nil
}

// revokeSessions signs a user out everywhere. Failures are only logged.
func (s *UserService) revokeSessions(userID uint) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteUserSessions(context.Background(), userID); err != nil {
		slog.Warn("failed to revoke user sessions", "user_id", userID, "error", err)
	}
}

func collegeIDTaken(db *gorm.DB, collegeID string, excludeID uint) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where("college_id = ?", collegeID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check college id: %w", err)
	}
	return count > 0, nil
}
