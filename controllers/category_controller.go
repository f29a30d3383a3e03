package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/utils"
)

// CategoryController manages the admin-curated category list.
type CategoryController struct {
	db *gorm.DB
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

// GetCategories lists all categories, name-ordered.
func (c *CategoryController) GetCategories(ctx *gin.Context) {
	var categories []models.Category
	if err := c.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list categories")
		return
	}
	utils.Success(ctx, "all categories", gin.H{"categories": categories, "count": len(categories)})
}

// CreateCategory adds a category. Names are unique; duplicates conflict.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "category name is required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, "category name is required")
		return
	}

	category := models.Category{Name: name, Slug: utils.Slugify(name)}
	if err := c.db.Create(&category).Error; err != nil {
		if isDuplicateKeyError(err) {
			utils.Error(ctx, http.StatusConflict, "category already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create category")
		return
	}

	utils.Created(ctx, "category created", gin.H{"category": category})
}

// DeleteCategory removes a category. Deletion is refused while any blog still
// references it, so blogs never point at a missing category.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	var category models.Category
	if err := c.db.First(&category, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load category")
		return
	}

	var count int64
	if err := c.db.Model(&models.Blog{}).Where("category_id = ?", category.ID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete category")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, "category still referenced by blogs")
		return
	}

	if err := c.db.Delete(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete category")
		return
	}

	utils.Success(ctx, "category deleted", nil)
}
