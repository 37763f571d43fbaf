package controllers

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/memorizu/memorizu/internal/pkg/assetstorage"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

const maxAssetSize = 5 * 1024 * 1024 // 5 MB

var allowedAssetExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// HandleUploadAsset stores a builder image and returns its public URL.
// POST /api/assets
func HandleUploadAsset(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "A file field is required")
	}
	if fileHeader.Size > maxAssetSize {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "Assets may be at most 5 MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedAssetExtensions[ext]
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "unsupported_type", "Only image uploads are supported")
	}

	client, err := assetstorage.GetClient()
	if err != nil {
		log.Printf("[Assets] storage unavailable: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Asset storage is not available")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Could not read uploaded file")
	}
	defer file.Close()

	cfg, err := assetstorage.LoadConfig()
	if err != nil {
		log.Printf("[Assets] config error: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Asset storage is not available")
	}
	objectKey := cfg.GetObjectKey(uc.UserID, uuid.New().String(), ext, time.Now())

	url, err := client.Upload(c.Context(), objectKey, contentType, file, fileHeader.Size)
	if err != nil {
		log.Printf("[Assets] upload failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Upload failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url": url,
		"key": objectKey,
	})
}
