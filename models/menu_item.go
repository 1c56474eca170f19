package models

import (
	"time"
)

// Category groups menu items by meal
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategorySnacks    Category = "snacks"
	CategoryDinner    Category = "dinner"
	CategoryBeverages Category = "beverages"
)

// Categories lists every valid category in menu display order
var Categories = []Category{CategoryBreakfast, CategoryLunch, CategorySnacks, CategoryDinner, CategoryBeverages}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MenuItem is a dish listed for a specific day.
// At most one listing exists per dish name and day.
type MenuItem struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DishName          string    `gorm:"not null;index:idx_menu_dish_date" json:"dish_name"`
	Price             float64   `gorm:"type:decimal(10,2);not null;check:price >= 0" json:"price"`
	AvailableQuantity int       `gorm:"not null;default:0;check:available_quantity >= 0" json:"available_quantity"`
	Category          Category  `gorm:"type:varchar(20);not null;index" json:"category"`
	Description       string    `json:"description"`
	ImageURL          string    `json:"image_url"`
	ImageS3Key        *string   `json:"-"`
	Date              time.Time `gorm:"not null;index:idx_menu_dish_date" json:"date"`
	IsAvailable       bool      `gorm:"not null" json:"is_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// StartOfDay truncates t to local midnight
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the closed-open interval [midnight, next midnight) containing t
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
