package services

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/config"
	"github.com/abyrenters/rental-backend/internal/models"
)

// UploadService stores vehicle photos in Cloudinary and returns their
// delivery URLs
type UploadService struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *logrus.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(cfg config.CloudinaryConfig, logger *logrus.Logger) (*UploadService, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &UploadService{
		cld:    cld,
		folder: cfg.Folder,
		logger: logger,
	}, nil
}

// UploadPhoto uploads one image and returns its HTTPS delivery URL
func (s *UploadService) UploadPhoto(ctx context.Context, file io.Reader, filename string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: s.folder,
	})
	if err != nil {
		s.logger.WithError(err).WithField("filename", filename).Error("Photo upload failed")
		return "", models.ErrUpstream
	}

	s.logger.WithFields(logrus.Fields{
		"public_id": result.PublicID,
		"bytes":     result.Bytes,
	}).Info("Photo uploaded")

	return result.SecureURL, nil
}
