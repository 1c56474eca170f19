package services

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/utils"
	"gorm.io/gorm"
)

// MenuItemInput holds the fields of a new listing
type MenuItemInput struct {
	DishName          string
	Price             float64
	AvailableQuantity int
	Category          models.Category
	Description       string
	ImageURL          string
	Date              *time.Time // defaults to today
}

// MenuItemUpdate holds optional listing changes; nil fields are left alone
type MenuItemUpdate struct {
	DishName          *string
	Price             *float64
	AvailableQuantity *int
	Category          *models.Category
	Description       *string
	ImageURL          *string
	Date              *time.Time
	IsAvailable       *bool
}

// MenuFilter narrows the management listing
type MenuFilter struct {
	Category models.Category
	Date     *time.Time
}

// DailyMenu groups a day's listings by category
type DailyMenu map[models.Category][]models.MenuItem

// MenuService manages daily dish listings
type MenuService struct {
	db     *gorm.DB
	images ImageService
}

// NewMenuService creates a new menu service instance; images may be nil
func NewMenuService(db *gorm.DB, images ImageService) *MenuService {
	return &MenuService{db: db, images: images}
}

// Today returns the available listings for the current local day
func (s *MenuService) Today() (DailyMenu, error) {
	return s.ForDate(time.Now())
}

// ForDate returns the available listings for the day containing t, grouped by
// category and sorted by category then dish name
func (s *MenuService) ForDate(t time.Time) (DailyMenu, error) {
	start, end := models.DayBounds(t)

	var items []models.MenuItem
	err := s.db.
		Where("date >= ? AND date < ? AND is_available = ?", start, end, true).
		Order("category ASC, dish_name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}

	menu := DailyMenu{}
	for _, item := range items {
		menu[item.Category] = append(menu[item.Category], item)
	}
	return menu, nil
}

// ListAll returns every listing, newest day first, for the management screen
func (s *MenuService) ListAll(filter MenuFilter, page PageRequest) ([]models.MenuItem, Pagination, error) {
	page = page.Normalize(50)

	q := s.db.Model(&models.MenuItem{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Date != nil {
		start, end := models.DayBounds(*filter.Date)
		q = q.Where("date >= ? AND date < ?", start, end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count menu items: %w", err)
	}

	var items []models.MenuItem
	if err := q.Order("date DESC, category ASC, dish_name ASC").Offset(page.Offset()).Limit(page.Limit).Find(&items).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list menu items: %w", err)
	}
	return items, newPagination(page, total), nil
}

// Get loads one listing
func (s *MenuService) Get(id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Menu item")
		}
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}
	return &item, nil
}

// Create lists a dish for a day, rejecting a second listing of the same dish that day
func (s *MenuService) Create(input MenuItemInput) (*models.MenuItem, error) {
	item := models.MenuItem{
		DishName:          strings.TrimSpace(input.DishName),
		Price:             input.Price,
		AvailableQuantity: input.AvailableQuantity,
		Category:          input.Category,
		Description:       input.Description,
		ImageURL:          input.ImageURL,
		Date:              models.StartOfDay(time.Now()),
		IsAvailable:       true,
	}
	if input.Date != nil {
		item.Date = models.StartOfDay(*input.Date)
	}
	if err := validateMenuItem(&item); err != nil {
		return nil, err
	}

	exists, err := s.dishListed(item.DishName, item.Date, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ConflictError(CodeDuplicate, "Dish already exists for this date")
	}

	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}
	return &item, nil
}

// Update applies partial changes, re-checking the one-listing-per-day rule on
// a rename or date move
func (s *MenuService) Update(id uint, input MenuItemUpdate) (*models.MenuItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	originalName, originalDate := item.DishName, item.Date
	// Only touched columns are written so concurrent stock changes are not clobbered
	updates := map[string]interface{}{}
	if input.DishName != nil {
		item.DishName = strings.TrimSpace(*input.DishName)
		updates["dish_name"] = item.DishName
	}
	if input.Price != nil {
		item.Price = *input.Price
		updates["price"] = item.Price
	}
	if input.AvailableQuantity != nil {
		item.AvailableQuantity = *input.AvailableQuantity
		updates["available_quantity"] = item.AvailableQuantity
	}
	if input.Category != nil {
		item.Category = *input.Category
		updates["category"] = item.Category
	}
	if input.Description != nil {
		item.Description = *input.Description
		updates["description"] = item.Description
	}
	if input.ImageURL != nil {
		item.ImageURL = *input.ImageURL
		updates["image_url"] = item.ImageURL
	}
	if input.Date != nil {
		item.Date = models.StartOfDay(*input.Date)
		updates["date"] = item.Date
	}
	if input.IsAvailable != nil {
		item.IsAvailable = *input.IsAvailable
		updates["is_available"] = item.IsAvailable
	}
	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return item, nil
	}

	if item.DishName != originalName || !item.Date.Equal(originalDate) {
		exists, err := s.dishListed(item.DishName, item.Date, item.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ConflictError(CodeDuplicate, "Dish already exists for this date")
		}
	}

	if err := s.db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return s.Get(id)
}

// Delete removes a listing and its stored photo
func (s *MenuService) Delete(id uint) error {
	item, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if item.ImageS3Key != nil && s.images != nil {
		if err := s.images.DeleteImage(*item.ImageS3Key); err != nil {
			slog.Warn("failed to delete dish image", "menu_item_id", item.ID, "error", err)
		}
	}
	return nil
}

// Toggle flips availability without touching the quantity
func (s *MenuService) Toggle(id uint) (*models.MenuItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(item).Update("is_available", !item.IsAvailable).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle menu item: %w", err)
	}
	return s.Get(id)
}

// UploadImage stores a dish photo and points the listing at it
func (s *MenuService) UploadImage(id uint, fileHeader *multipart.FileHeader) (*models.MenuItem, error) {
	if s.images == nil {
		return nil, newError(KindInternal, CodeFileUpload, "Image storage is not configured")
	}
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadDishImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, newError(KindValidation, uploadErr.Code, "%s", uploadErr.Message)
		}
		return nil, fmt.Errorf("failed to upload dish image: %w", err)
	}
	url, err := s.images.GetImageURL(key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dish image URL: %w", err)
	}

	var previous string
	if item.ImageS3Key != nil {
		previous = *item.ImageS3Key
	}
	if err := s.db.Model(item).Updates(map[string]interface{}{"image_s3_key": key, "image_url": url}).Error; err != nil {
		return nil, fmt.Errorf("failed to save dish image: %w", err)
	}
	if previous != "" && previous != key {
		if err := s.images.DeleteImage(previous); err != nil {
			slog.Warn("failed to delete replaced dish image", "menu_item_id", item.ID, "error", err)
		}
	}
	return s.Get(id)
}

func (s *MenuService) dishListed(dishName string, day time.Time, excludeID uint) (bool, error) {
	start, end := models.DayBounds(day)
	q := s.db.Model(&models.MenuItem{}).Where("dish_name = ? AND date >= ? AND date < ?", dishName, start, end)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check existing dish: %w", err)
	}
	return count > 0, nil
}

func validateMenuItem(item *models.MenuItem) error {
	if item.DishName == "" {
		return ValidationError("Dish name is required")
	}
	if item.Price < 0 {
		return ValidationError("Price must be positive")
	}
	if item.AvailableQuantity < 0 {
		return ValidationError("Quantity must be a non-negative integer")
	}
	if !item.Category.Valid() {
		return ValidationError("Invalid category")
	}
	return nil
}
