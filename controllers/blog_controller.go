package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/storage"
	"github.com/RonnelR/italics-api/utils"
)

const maxExcerptLen = 200

// BlogController manages blogs, likes and comments. Cover images live in the
// external object store; the controller owns their lifecycle.
type BlogController struct {
	db     *gorm.DB
	images storage.ImageStore
	folder string
}

// NewBlogController creates a BlogController uploading covers into folder.
func NewBlogController(db *gorm.DB, images storage.ImageStore, folder string) *BlogController {
	if folder == "" {
		folder = "blogs"
	}
	return &BlogController{db: db, images: images, folder: folder}
}

type blogForm struct {
	title      string
	excerpt    string
	content    string
	categoryID uint
	tags       []string
}

// bindBlogForm validates the multipart fields shared by create and edit.
func (b *BlogController) bindBlogForm(ctx *gin.Context) (*blogForm, bool) {
	title := strings.TrimSpace(ctx.PostForm("title"))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, "title is required")
		return nil, false
	}
	excerpt := strings.TrimSpace(ctx.PostForm("excerpt"))
	if excerpt == "" {
		utils.Error(ctx, http.StatusBadRequest, "excerpt is required")
		return nil, false
	}
	if len([]rune(excerpt)) > maxExcerptLen {
		utils.Error(ctx, http.StatusBadRequest, "excerpt must be at most 200 characters")
		return nil, false
	}
	content := utils.Sanitize(ctx.PostForm("content"))
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "content is required")
		return nil, false
	}
	categoryRaw := strings.TrimSpace(ctx.PostForm("category"))
	if categoryRaw == "" {
		utils.Error(ctx, http.StatusBadRequest, "category is required")
		return nil, false
	}
	categoryID, err := strconv.ParseUint(categoryRaw, 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid category")
		return nil, false
	}
	var count int64
	if err := b.db.Model(&models.Category{}).Where("id = ?", uint(categoryID)).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusBadRequest, "invalid category")
		return nil, false
	}
	tags := parseTags(ctx.PostForm("tags"))
	if len(tags) == 0 {
		utils.Error(ctx, http.StatusBadRequest, "tags are required")
		return nil, false
	}

	return &blogForm{
		title:      title,
		excerpt:    excerpt,
		content:    content,
		categoryID: uint(categoryID),
		tags:       tags,
	}, true
}

// uniqueSlug derives a slug from title, appending a timestamp when the derived
// value is already taken. excludeID skips the blog's own record on edit.
func (b *BlogController) uniqueSlug(title string, excludeID uint) (string, error) {
	slug := utils.Slugify(title)
	query := b.db.Model(&models.Blog{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		slug = utils.DisambiguateSlug(slug)
	}
	return slug, nil
}

func (b *BlogController) uploadCover(ctx *gin.Context, file multipart.File, header *multipart.FileHeader) (storage.Image, error) {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return b.images.Upload(ctx.Request.Context(), file, contentType, b.folder)
}

// destroyCover releases an object-store image. Failures are logged, never
// fatal to the calling operation.
func (b *BlogController) destroyCover(ctx *gin.Context, id string) {
	if id == "" {
		return
	}
	if err := b.images.Destroy(ctx.Request.Context(), id); err != nil {
		utils.Sugar.Warnf("failed to destroy cover image %s: %v", id, err)
	}
}

// CreateBlog publishes a new blog. The author is always the authenticated
// requester; the cover image is uploaded before the row is inserted.
func (b *BlogController) CreateBlog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	form, ok := b.bindBlogForm(ctx)
	if !ok {
		return
	}

	file, header, err := ctx.Request.FormFile("coverImage")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "cover image is required")
		return
	}
	defer file.Close()

	slug, err := b.uniqueSlug(form.title, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create blog")
		return
	}

	cover, err := b.uploadCover(ctx, file, header)
	if err != nil {
		utils.Sugar.Errorf("cover upload failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to upload cover image")
		return
	}

	blog := models.Blog{
		Title:      form.title,
		Slug:       slug,
		Excerpt:    form.excerpt,
		Content:    form.content,
		CoverURL:   cover.URL,
		CoverID:    cover.ID,
		AuthorID:   userID,
		CategoryID: form.categoryID,
	}
	blog.SetTagList(form.tags)

	if err := b.db.Create(&blog).Error; err != nil {
		// The row never landed; release the uploaded object.
		b.destroyCover(ctx, cover.ID)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create blog")
		return
	}

	utils.InvalidateByPrefix("cache:blogs:")

	utils.Created(ctx, "blog created", gin.H{"blog": blog})
}

// EditBlog updates a blog. Only the author or an admin may edit; when a new
// cover arrives the old object is destroyed before the replacement upload.
func (b *BlogController) EditBlog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var blog models.Blog
	if err := b.db.First(&blog, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "blog not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load blog")
		return
	}

	if blog.AuthorID != userID && !isAdmin(b.db, ctx) {
		utils.Error(ctx, http.StatusForbidden, "you can only edit your own blogs")
		return
	}

	form, ok := b.bindBlogForm(ctx)
	if !ok {
		return
	}

	slug := blog.Slug
	if form.title != blog.Title {
		var err error
		slug, err = b.uniqueSlug(form.title, blog.ID)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to update blog")
			return
		}
	}

	coverURL, coverID := blog.CoverURL, blog.CoverID
	if file, header, err := ctx.Request.FormFile("coverImage"); err == nil {
		defer file.Close()
		b.destroyCover(ctx, blog.CoverID)
		cover, err := b.uploadCover(ctx, file, header)
		if err != nil {
			utils.Sugar.Errorf("cover upload failed: %v", err)
			utils.Error(ctx, http.StatusInternalServerError, "failed to upload cover image")
			return
		}
		coverURL, coverID = cover.URL, cover.ID
	}

	blog.Title = form.title
	blog.Slug = slug
	blog.Excerpt = form.excerpt
	blog.Content = form.content
	blog.CategoryID = form.categoryID
	blog.CoverURL = coverURL
	blog.CoverID = coverID
	blog.SetTagList(form.tags)

	if err := b.db.Save(&blog).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update blog")
		return
	}

	utils.InvalidateByPrefix("cache:blogs:")
	utils.InvalidateByPrefix("cache:blog:detail:")

	utils.Success(ctx, "blog updated", gin.H{"blog": blog})
}

// DeleteBlog removes a blog together with its comments, likes and saved
// references in one transaction, then releases the cover image. The DB
// delete comes first; a failed image destroy is logged, not rolled back.
func (b *BlogController) DeleteBlog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var blog models.Blog
	if err := b.db.First(&blog, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "blog not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load blog")
		return
	}

	if blog.AuthorID != userID && !isAdmin(b.db, ctx) {
		utils.Error(ctx, http.StatusForbidden, "you can only delete your own blogs")
		return
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", blog.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", blog.ID).Delete(&models.BlogLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", blog.ID).Delete(&models.SavedBlog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&blog).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete blog")
		return
	}

	b.destroyCover(ctx, blog.CoverID)

	utils.InvalidateByPrefix("cache:blogs:")
	utils.InvalidateByPrefix("cache:blog:detail:")

	utils.Success(ctx, "blog deleted", nil)
}

// AllBlogs lists every blog with author and category display fields.
func (b *BlogController) AllBlogs(ctx *gin.Context) {
	const cacheKey = "cache:blogs:all"
	if cached, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", cached)
		return
	}

	var blogs []models.Blog
	if err := b.db.Preload("Author").Preload("Category").Preload("Likes").
		Order("created_at DESC").Find(&blogs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list blogs")
		return
	}

	payload := gin.H{"blogs": blogs, "count": len(blogs)}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Success: true, Message: "all blogs", Data: payload}, 0)
	utils.Success(ctx, "all blogs", payload)
}

// UserBlogs lists blogs by a specific author.
func (b *BlogController) UserBlogs(ctx *gin.Context) {
	var blogs []models.Blog
	if err := b.db.Where("author_id = ?", ctx.Param("userId")).
		Preload("Author").Preload("Category").
		Order("created_at DESC").Find(&blogs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list user blogs")
		return
	}
	utils.Success(ctx, "user blogs", gin.H{"blogs": blogs, "count": len(blogs)})
}

// SingleBlog fetches one blog by numeric id or slug, with comments and their
// authors resolved.
func (b *BlogController) SingleBlog(ctx *gin.Context) {
	idOrSlug := ctx.Param("id")
	cacheKey := "cache:blog:detail:" + idOrSlug
	if cached, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", cached)
		return
	}

	blog, err := findBlogByIDOrSlug(b.db, idOrSlug, "Author", "Category", "Likes", "Comments", "Comments.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "blog not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load blog")
		return
	}

	payload := gin.H{"blog": blog}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Success: true, Message: "single blog", Data: payload}, 0)
	utils.Success(ctx, "single blog", payload)
}

// Like adds the requester to a blog's likes set: a single atomic insert that
// conflicts into a no-op when the like already exists.
func (b *BlogController) Like(ctx *gin.Context) {
	b.toggleLike(ctx, true)
}

// Unlike removes the requester from the likes set; absent entries are a no-op.
func (b *BlogController) Unlike(ctx *gin.Context) {
	b.toggleLike(ctx, false)
}

func (b *BlogController) toggleLike(ctx *gin.Context, like bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	blogID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid blog id")
		return
	}

	var count int64
	if err := b.db.Model(&models.Blog{}).Where("id = ?", uint(blogID)).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusNotFound, "blog not found")
		return
	}

	if like {
		entry := models.BlogLike{BlogID: uint(blogID), UserID: userID}
		err = b.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	} else {
		err = b.db.Where("blog_id = ? AND user_id = ?", uint(blogID), userID).Delete(&models.BlogLike{}).Error
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update likes")
		return
	}

	utils.InvalidateByPrefix("cache:blog:detail:")
	utils.InvalidateByPrefix("cache:blogs:")

	var likes []models.BlogLike
	if err := b.db.Where("blog_id = ?", uint(blogID)).Find(&likes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load likes")
		return
	}
	message := "blog liked"
	if !like {
		message = "blog unliked"
	}
	utils.Success(ctx, message, gin.H{"likes": likes, "count": len(likes)})
}

// AddComment lets any authenticated user comment on any blog.
func (b *BlogController) AddComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "comment text is required")
		return
	}
	text := strings.TrimSpace(utils.Sanitize(req.Text))
	if text == "" {
		utils.Error(ctx, http.StatusBadRequest, "comment text is required")
		return
	}

	var blog models.Blog
	if err := b.db.First(&blog, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "blog not found")
		return
	}

	comment := models.Comment{BlogID: blog.ID, UserID: userID, Text: text}
	if err := b.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to add comment")
		return
	}
	if err := b.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load comment")
		return
	}

	utils.InvalidateByPrefix("cache:blog:detail:")

	utils.Success(ctx, "comment added", gin.H{"comment": comment})
}

// EditComment updates a comment's text. Only the comment's author may edit.
func (b *BlogController) EditComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "comment text is required")
		return
	}
	text := strings.TrimSpace(utils.Sanitize(req.Text))
	if text == "" {
		utils.Error(ctx, http.StatusBadRequest, "comment text is required")
		return
	}

	comment, ok := b.loadComment(ctx)
	if !ok {
		return
	}
	if comment.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, "not authorized to edit this comment")
		return
	}

	if err := b.db.Model(comment).Update("text", text).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update comment")
		return
	}
	comment.Text = text

	utils.InvalidateByPrefix("cache:blog:detail:")

	utils.Success(ctx, "comment updated", gin.H{"comment": comment})
}

// DeleteComment removes a comment. Only the comment's author may delete.
func (b *BlogController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment, ok := b.loadComment(ctx)
	if !ok {
		return
	}
	if comment.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, "not authorized to delete this comment")
		return
	}

	if err := b.db.Delete(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix("cache:blog:detail:")

	utils.Success(ctx, "comment deleted", nil)
}

// loadComment resolves the blogId/commentId pair from the path.
func (b *BlogController) loadComment(ctx *gin.Context) (*models.Comment, bool) {
	var comment models.Comment
	err := b.db.Where("id = ? AND blog_id = ?", ctx.Param("commentId"), ctx.Param("blogId")).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "comment not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load comment")
		}
		return nil, false
	}
	return &comment, true
}
