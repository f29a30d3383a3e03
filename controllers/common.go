package controllers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/RonnelR/italics-api/middleware"
	"github.com/RonnelR/italics-api/models"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// isAdmin re-reads the requester's stored role, the same source AdminRequired
// consults, so role changes apply to outstanding tokens everywhere.
func isAdmin(db *gorm.DB, ctx *gin.Context) bool {
	id, ok := getUserID(ctx)
	if !ok {
		return false
	}
	var user models.User
	if err := db.Select("role").First(&user, id).Error; err != nil {
		return false
	}
	return user.Role == models.RoleAdmin
}

// parseTags accepts a JSON array string or a single plain value, the two forms
// clients send for multipart fields, and normalizes entries to trimmed
// lowercase with empties dropped.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		parsed = []string{raw}
	}
	var tags []string
	for _, t := range parsed {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// findBlogByIDOrSlug resolves a path value that may be a numeric id or a slug.
func findBlogByIDOrSlug(db *gorm.DB, idOrSlug string, preloads ...string) (*models.Blog, error) {
	query := db
	for _, p := range preloads {
		query = query.Preload(p)
	}
	var blog models.Blog
	if id, err := strconv.ParseUint(idOrSlug, 10, 64); err == nil {
		if err := query.First(&blog, uint(id)).Error; err != nil {
			return nil, err
		}
		return &blog, nil
	}
	if err := query.Where("slug = ?", idOrSlug).First(&blog).Error; err != nil {
		return nil, err
	}
	return &blog, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
