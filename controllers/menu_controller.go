package controllers

import (
	"net/http"
	"time"

	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/college-canteen/canteen-api/utils"
	"github.com/gin-gonic/gin"
)

// CreateMenuItemRequest represents the request body for listing a dish
type CreateMenuItemRequest struct {
	DishName          string   `json:"dish_name" binding:"required,max=100"`
	Price             *float64 `json:"price" binding:"required,gte=0"`
	AvailableQuantity *int     `json:"available_quantity" binding:"required,gte=0"`
	Category          string   `json:"category" binding:"required,category"`
	Description       string   `json:"description" binding:"max=500"`
	ImageURL          string   `json:"image_url"`
	Date              string   `json:"date"`
}

// UpdateMenuItemRequest represents the request body for changing a listing
// All fields are optional - only provided fields will be updated
type UpdateMenuItemRequest struct {
	DishName          *string  `json:"dish_name" binding:"omitempty,min=1,max=100"`
	Price             *float64 `json:"price" binding:"omitempty,gte=0"`
	AvailableQuantity *int     `json:"available_quantity" binding:"omitempty,gte=0"`
	Category          *string  `json:"category" binding:"omitempty,category"`
	Description       *string  `json:"description" binding:"omitempty,max=500"`
	ImageURL          *string  `json:"image_url"`
	Date              *string  `json:"date"`
	IsAvailable       *bool    `json:"is_available"`
}

// GetTodayMenu handles GET /api/menu/today - available dishes grouped by category
func GetTodayMenu(c *gin.Context) {
	menu, err := menuService().Today()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Menu retrieved successfully",
		"menu":    menu,
		"date":    models.StartOfDay(time.Now()).Format(utils.DateLayout),
	})
}

// GetMenuByDate handles GET /api/menu/date/:date
func GetMenuByDate(c *gin.Context) {
	day, err := utils.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	menu, err := menuService().ForDate(day)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Menu retrieved successfully",
		"menu":    menu,
		"date":    day.Format(utils.DateLayout),
	})
}

// ListMenuItems handles GET /api/menu/manage/all - every listing, optionally
// filtered by ?category= and ?date=
func ListMenuItems(c *gin.Context) {
	date, err := utils.ParseOptionalDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	filter := services.MenuFilter{Category: models.Category(c.Query("category")), Date: date}
	items, pagination, err := menuService().ListAll(filter, pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Menu items retrieved successfully",
		"menuItems":  items,
		"pagination": pagination,
	})
}

// CreateMenuItem handles POST /api/menu
func CreateMenuItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	date, err := utils.ParseOptionalDate(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	item, err := menuService().Create(services.MenuItemInput{
		DishName:          req.DishName,
		Price:             *req.Price,
		AvailableQuantity: *req.AvailableQuantity,
		Category:          models.Category(req.Category),
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		Date:              date,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Menu item created successfully",
		"menuItem": item,
	})
}

// UpdateMenuItem handles PUT /api/menu/:id
func UpdateMenuItem(c *gin.Context) {
	id, ok := uintParam(c, "id", "menu item")
	if !ok {
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	update := services.MenuItemUpdate{
		DishName:          req.DishName,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		IsAvailable:       req.IsAvailable,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		update.Category = &category
	}
	if req.Date != nil {
		day, err := utils.ParseDate(*req.Date)
		if err != nil {
			respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		update.Date = &day
	}

	item, err := menuService().Update(id, update)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Menu item updated successfully",
		"menuItem": item,
	})
}

// ToggleMenuItem handles PATCH /api/menu/:id/toggle - flips availability
func ToggleMenuItem(c *gin.Context) {
	id, ok := uintParam(c, "id", "menu item")
	if !ok {
		return
	}

	item, err := menuService().Toggle(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Menu item disabled successfully"
	if item.IsAvailable {
		message = "Menu item enabled successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  message,
		"menuItem": item,
	})
}

// DeleteMenuItem handles DELETE /api/menu/:id
func DeleteMenuItem(c *gin.Context) {
	id, ok := uintParam(c, "id", "menu item")
	if !ok {
		return
	}

	if err := menuService().Delete(id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Menu item deleted successfully",
	})
}

// UploadMenuImage handles POST /api/menu/:id/image - multipart PNG under the "image" field
func UploadMenuImage(c *gin.Context) {
	id, ok := uintParam(c, "id", "menu item")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Image file is required")
		return
	}

	item, err := menuService().UploadImage(id, fileHeader)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Image uploaded successfully",
		"menuItem": item,
	})
}
