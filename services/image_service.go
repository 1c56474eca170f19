package services

import (
	"fmt"
	"mime/multipart"

	"github.com/college-canteen/canteen-api/utils"
)

const (
	dishImagePrefix = "menu"
	qrCodePrefix    = "qr"
)

// ImageService stores dish photos and rendered pickup QR codes
type ImageService interface {
	// UploadDishImage validates and uploads a dish photo, returns the storage key
	UploadDishImage(fileHeader *multipart.FileHeader) (string, error)

	// UploadQRCode stores a rendered QR PNG for an order, returns the storage key
	UploadQRCode(orderID string, png []byte) (string, error)

	// GetImageURL generates a URL for accessing a stored image
	GetImageURL(imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = NewS3ImageService(s3Service)
	return imageServiceInstance
}

// NewS3ImageService wraps an S3 backend
func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// GetImageService returns the initialized image service instance, nil when storage is disabled
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadDishImage validates and uploads a dish photo to S3
func (s *S3ImageService) UploadDishImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	s3Key, err := s.s3Service.UploadFile(dishImagePrefix, fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s3Key, nil
}

// UploadQRCode stores the PNG at a key derived from the order id
func (s *S3ImageService) UploadQRCode(orderID string, png []byte) (string, error) {
	key := fmt.Sprintf("%s/%s.png", qrCodePrefix, orderID)
	if err := s.s3Service.UploadBytes(key, png, "image/png"); err != nil {
		return "", fmt.Errorf("failed to upload QR code: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
