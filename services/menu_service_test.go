package services

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/college-canteen/canteen-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeaderFor(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func TestDailyMenu(t *testing.T) {
	db := setupTestDB(t)
	service := NewMenuService(db, nil)
	createTestMenuItem(t, db, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	createTestMenuItem(t, db, "Idli", 20, 20, models.CategoryBreakfast)
	createTestMenuItem(t, db, "Chicken Biryani", 120, 15, models.CategoryLunch)
	hidden := createTestMenuItem(t, db, "Sold Out Soup", 40, 0, models.CategoryDinner)
	require.NoError(t, db.Model(hidden).Update("is_available", false).Error)

	yesterday := time.Now().AddDate(0, 0, -1)
	_, err := service.Create(MenuItemInput{
		DishName: "Poha", Price: 25, AvailableQuantity: 5, Category: models.CategoryBreakfast, Date: &yesterday,
	})
	require.NoError(t, err)

	menu, err := service.Today()
	require.NoError(t, err)
	require.Len(t, menu[models.CategoryBreakfast], 2)
	assert.Equal(t, "Idli", menu[models.CategoryBreakfast][0].DishName)
	assert.Equal(t, "Masala Dosa", menu[models.CategoryBreakfast][1].DishName)
	assert.Len(t, menu[models.CategoryLunch], 1)
	assert.Empty(t, menu[models.CategoryDinner])

	past, err := service.ForDate(yesterday)
	require.NoError(t, err)
	require.Len(t, past[models.CategoryBreakfast], 1)
	assert.Equal(t, "Poha", past[models.CategoryBreakfast][0].DishName)
}

func TestCreateMenuItem(t *testing.T) {
	db := setupTestDB(t)
	service := NewMenuService(db, nil)

	item, err := service.Create(MenuItemInput{
		DishName: " Paneer Butter Masala ", Price: 100, AvailableQuantity: 10, Category: models.CategoryDinner,
	})
	require.NoError(t, err)
	assert.Equal(t, "Paneer Butter Masala", item.DishName)
	assert.True(t, item.IsAvailable)
	assert.True(t, item.Date.Equal(models.StartOfDay(time.Now())))

	tomorrow := time.Now().AddDate(0, 0, 1)
	_, err = service.Create(MenuItemInput{
		DishName: "Paneer Butter Masala", Price: 100, AvailableQuantity: 10, Category: models.CategoryDinner, Date: &tomorrow,
	})
	assert.NoError(t, err, "same dish on another day is allowed")

	tests := []struct {
		name  string
		input MenuItemInput
		code  string
	}{
		{"duplicate for today", MenuItemInput{DishName: "Paneer Butter Masala", Price: 90, Category: models.CategoryDinner}, CodeDuplicate},
		{"missing name", MenuItemInput{Price: 10, Category: models.CategoryLunch}, CodeValidation},
		{"negative price", MenuItemInput{DishName: "A", Price: -1, Category: models.CategoryLunch}, CodeValidation},
		{"negative quantity", MenuItemInput{DishName: "B", Price: 1, AvailableQuantity: -1, Category: models.CategoryLunch}, CodeValidation},
		{"unknown category", MenuItemInput{DishName: "C", Price: 1, Category: "brunch"}, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(tt.input)
			require.Error(t, err)
			assert.True(t, IsCode(err, tt.code))
		})
	}
}

func TestUpdateMenuItem(t *testing.T) {
	db := setupTestDB(t)
	service := NewMenuService(db, nil)
	dosa := createTestMenuItem(t, db, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	createTestMenuItem(t, db, "Idli", 20, 20, models.CategoryBreakfast)

	price := 55.0
	updated, err := service.Update(dosa.ID, MenuItemUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 55.0, updated.Price)
	assert.Equal(t, 20, updated.AvailableQuantity)

	rename := "Idli"
	_, err = service.Update(dosa.ID, MenuItemUpdate{DishName: &rename})
	assert.True(t, IsCode(err, CodeDuplicate))

	off := false
	updated, err = service.Update(dosa.ID, MenuItemUpdate{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	negative := -5
	_, err = service.Update(dosa.ID, MenuItemUpdate{AvailableQuantity: &negative})
	assert.True(t, IsKind(err, KindValidation))

	_, err = service.Update(9999, MenuItemUpdate{Price: &price})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestToggleAndDeleteMenuItem(t *testing.T) {
	db := setupTestDB(t)
	s3 := NewMockS3Service()
	service := NewMenuService(db, NewS3ImageService(s3))
	dosa := createTestMenuItem(t, db, "Masala Dosa", 50, 20, models.CategoryBreakfast)

	toggled, err := service.Toggle(dosa.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsAvailable)
	assert.Equal(t, 20, toggled.AvailableQuantity)
	toggled, err = service.Toggle(dosa.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsAvailable)

	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("body")...)
	withImage, err := service.UploadImage(dosa.ID, fileHeaderFor(t, "dosa.png", png))
	require.NoError(t, err)
	require.NotNil(t, withImage.ImageS3Key)
	assert.Equal(t, 1, s3.Count())

	require.NoError(t, service.Delete(dosa.ID))
	assert.Zero(t, s3.Count(), "stored photo is removed with the listing")
	_, err = service.Get(dosa.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestUploadMenuImage(t *testing.T) {
	db := setupTestDB(t)
	s3 := NewMockS3Service()
	service := NewMenuService(db, NewS3ImageService(s3))
	dosa := createTestMenuItem(t, db, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("body")...)

	t.Run("stores the photo and links it", func(t *testing.T) {
		item, err := service.UploadImage(dosa.ID, fileHeaderFor(t, "dosa.png", png))
		require.NoError(t, err)
		require.NotNil(t, item.ImageS3Key)
		assert.True(t, s3.FileExists(*item.ImageS3Key))
		assert.Contains(t, item.ImageURL, *item.ImageS3Key)
	})

	t.Run("replacing a photo removes the old object", func(t *testing.T) {
		before, err := service.Get(dosa.ID)
		require.NoError(t, err)
		require.NotNil(t, before.ImageS3Key)
		oldKey := *before.ImageS3Key

		item, err := service.UploadImage(dosa.ID, fileHeaderFor(t, "dosa2.png", png))
		require.NoError(t, err)
		require.NotNil(t, item.ImageS3Key)
		assert.NotEqual(t, oldKey, *item.ImageS3Key)
		assert.False(t, s3.FileExists(oldKey))
		assert.True(t, s3.FileExists(*item.ImageS3Key))
		assert.Equal(t, 1, s3.Count())
	})

	t.Run("rejects a non-png", func(t *testing.T) {
		_, err := service.UploadImage(dosa.ID, fileHeaderFor(t, "dosa.jpg", []byte("jpeg")))
		require.Error(t, err)
		assert.True(t, IsCode(err, "INVALID_FILE_FORMAT"))
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("storage not configured", func(t *testing.T) {
		_, err := NewMenuService(db, nil).UploadImage(dosa.ID, fileHeaderFor(t, "dosa.png", png))
		assert.True(t, IsKind(err, KindInternal))
	})
}

func TestListAllMenuItems(t *testing.T) {
	db := setupTestDB(t)
	service := NewMenuService(db, nil)
	createTestMenuItem(t, db, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	createTestMenuItem(t, db, "Chicken Biryani", 120, 15, models.CategoryLunch)
	hidden := createTestMenuItem(t, db, "Iced Tea", 30, 0, models.CategoryBeverages)
	require.NoError(t, db.Model(hidden).Update("is_available", false).Error)

	items, page, err := service.ListAll(MenuFilter{}, PageRequest{})
	require.NoError(t, err)
	assert.Len(t, items, 3, "management view includes unavailable items")
	assert.Equal(t, 50, page.ItemsPerPage)

	items, _, err = service.ListAll(MenuFilter{Category: models.CategoryLunch}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Chicken Biryani", items[0].DishName)
}
