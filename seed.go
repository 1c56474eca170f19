package main

import (
	"fmt"
	"log/slog"

	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"gorm.io/gorm"
)

// seedAccounts are created with a known password so each role can sign in
// on a fresh install
var seedAccounts = []services.CreateUserInput{
	{
		Name:       "System Admin",
		CollegeID:  "admin1",
		Email:      "admin@college.edu",
		Password:   "admin123",
		Role:       models.RoleAdmin,
		Department: "Administration",
	},
	{
		Name:       "Anirudha Khanrah",
		CollegeID:  "BWU/BTS/24/269",
		Email:      "anirudha@college.edu",
		Password:   "anirudha123",
		Role:       models.RoleStudent,
		Department: "Computer Science",
	},
	{
		Name:       "Canteen Staff",
		CollegeID:  "STAFF1",
		Email:      "staff@college.edu",
		Password:   "staff123",
		Role:       models.RoleStaff,
		Department: "Canteen Operations",
	},
	{
		Name:       "Dr. Sharma",
		CollegeID:  "PROF1",
		Email:      "sharma@college.edu",
		Password:   "prof123",
		Role:       models.RoleProfessor,
		Department: "Physics",
	},
}

var seedDishes = []services.MenuItemInput{
	{DishName: "Masala Dosa", Price: 50, AvailableQuantity: 20, Category: models.CategoryBreakfast, Description: "Crisp dosa with potato filling, sambar and chutney"},
	{DishName: "Chicken Biryani", Price: 120, AvailableQuantity: 15, Category: models.CategoryLunch, Description: "Dum biryani with raita"},
	{DishName: "Paneer Butter Masala", Price: 100, AvailableQuantity: 10, Category: models.CategoryDinner, Description: "Served with two rotis"},
	{DishName: "Iced Tea", Price: 30, AvailableQuantity: 50, Category: models.CategoryBeverages},
}

// SeedReport counts what a seeding run created and what already existed
type SeedReport struct {
	UsersCreated  int
	UsersSkipped  int
	DishesCreated int
	DishesSkipped int
}

// seedDatabase creates the default accounts and optionally today's sample
// menu. Existing accounts and dishes are left untouched, so it is safe to
// run repeatedly.
func seedDatabase(db *gorm.DB, withMenu bool) (*SeedReport, error) {
	report := &SeedReport{}

	users := services.NewUserService(db, nil, "")
	for _, account := range seedAccounts {
		if _, err := users.Create(account); err != nil {
			if se, ok := services.AsServiceError(err); ok && se.Code == services.CodeDuplicate {
				report.UsersSkipped++
				continue
			}
			return nil, fmt.Errorf("failed to seed user %s: %w", account.CollegeID, err)
		}
		slog.Info("seeded user", "college_id", account.CollegeID, "role", account.Role)
		report.UsersCreated++
	}

	if !withMenu {
		return report, nil
	}

	menu := services.NewMenuService(db, nil)
	for _, dish := range seedDishes {
		if _, err := menu.Create(dish); err != nil {
			if se, ok := services.AsServiceError(err); ok && se.Code == services.CodeDuplicate {
				report.DishesSkipped++
				continue
			}
			return nil, fmt.Errorf("failed to seed dish %s: %w", dish.DishName, err)
		}
		report.DishesCreated++
	}
	return report, nil
}
