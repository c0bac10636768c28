package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"taskman/internal/config"
	"taskman/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// profileView is the public shape of a user, password excluded.
// ProfilePicture serializes as null until one is uploaded.
type profileView struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
}

func profileCacheKey(userID int) string {
	return fmt.Sprintf("profile:%d", userID)
}

// validateUpload rejects anything that is not a small image.
func validateUpload(file *multipart.FileHeader) error {
	if file.Size > 5<<20 {
		return fiber.NewError(fiber.StatusBadRequest, "File size exceeds the limit of 5MB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be an image")
	}

	return nil
}

// saveProfilePicture writes the upload under the static uploads dir with
// a unique timestamped name and returns the path it is served from.
func saveProfilePicture(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	dir := path.Join(config.UploadDir, "profile-pictures")
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}

	newFilename := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(file.Filename))
	if err := c.SaveFile(file, path.Join(dir, newFilename)); err != nil {
		return "", err
	}

	return "/uploads/profile-pictures/" + newFilename, nil
}

func scanProfile(row *sql.Row) (profileView, error) {
	var view profileView
	var picture sql.NullString
	if err := row.Scan(&view.Name, &view.Email, &picture); err != nil {
		return view, err
	}
	if picture.Valid {
		view.ProfilePicture = &picture.String
	}
	return view, nil
}

// GetProfile returns the caller's own profile.
func GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	cacheKey := profileCacheKey(userID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var view profileView
		if err := json.Unmarshal([]byte(cached), &view); err == nil {
			return c.JSON(view)
		}
	}

	view, err := scanProfile(config.DB.QueryRow(
		"SELECT name, email, profile_picture FROM users WHERE id = $1", userID))
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Profile for missing user", zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching profile",
		})
	}

	if viewJSON, err := json.Marshal(view); err == nil {
		if err := config.RedisClient.SetEX(config.Ctx, cacheKey, viewJSON, time.Hour).Err(); err != nil {
			logger.ErrorLogger.Error("Error caching profile", zap.Error(err))
		}
	}

	logger.AuditLogger.Info("Profile fetched", zap.Int("user_id", userID))
	return c.JSON(view)
}

// UpdateProfile applies a partial update from a multipart form: any of
// name, email and a profilePicture file may be supplied. An update with
// nothing usable in it is rejected.
func UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))

	picturePath := ""
	if file, err := c.FormFile("profilePicture"); err == nil {
		if err := validateUpload(file); err != nil {
			logger.ErrorLogger.Error("Error validating file", zap.Error(err))
			return c.Status(400).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		picturePath, err = saveProfilePicture(c, file)
		if err != nil {
			logger.ErrorLogger.Error("Error saving file", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error saving file",
			})
		}
	}

	if name == "" && email == "" && picturePath == "" {
		logger.AuditLogger.Warn("Empty profile update", zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "No valid fields provided for update",
		})
	}

	// COALESCE keeps whatever fields were not supplied
	_, err := config.DB.Exec(`
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
			email = COALESCE(NULLIF($2, ''), email),
			profile_picture = COALESCE(NULLIF($3, ''), profile_picture),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`,
		name, email, picturePath, userID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.SecurityLogger.Warn("Duplicate email on profile update", zap.String("email", email))
			return c.Status(400).JSON(fiber.Map{
				"message": "Email already registered",
			})
		}
		logger.ErrorLogger.Error("Error updating profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating profile",
		})
	}

	view, err := scanProfile(config.DB.QueryRow(
		"SELECT name, email, profile_picture FROM users WHERE id = $1", userID))
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated profile",
		})
	}

	config.RedisClient.Del(config.Ctx, profileCacheKey(userID))

	logger.AuditLogger.Info("Profile updated", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    view,
	})
}

// UploadProfilePicture replaces the caller's profile picture.
func UploadProfilePicture(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	file, err := c.FormFile("profilePicture")
	if err != nil {
		logger.AuditLogger.Warn("Picture upload without file", zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "No file uploaded",
		})
	}

	if err := validateUpload(file); err != nil {
		logger.ErrorLogger.Error("Error validating file", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	picturePath, err := saveProfilePicture(c, file)
	if err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error saving file",
		})
	}

	view, err := scanProfile(config.DB.QueryRow(`
		UPDATE users SET profile_picture = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING name, email, profile_picture`,
		picturePath, userID))
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Picture upload for missing user", zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error updating profile picture", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating profile picture",
		})
	}

	config.RedisClient.Del(config.Ctx, profileCacheKey(userID))

	logger.AuditLogger.Info("Profile picture uploaded",
		zap.Int("user_id", userID), zap.String("path", picturePath))
	return c.JSON(fiber.Map{
		"message": "Profile picture uploaded successfully",
		"user":    view,
	})
}
