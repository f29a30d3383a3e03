package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/utils"
)

const maxPhotoBytes = 1 << 20 // 1MB

// AuthController handles accounts: registration, login, password reset,
// profile, saved blogs and the admin user operations.
type AuthController struct {
	db          *gorm.DB
	tokens      *utils.TokenService
	mailer      utils.MailSender
	frontendURL string
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, tokens *utils.TokenService, mailer utils.MailSender, frontendURL string) *AuthController {
	return &AuthController{db: db, tokens: tokens, mailer: mailer, frontendURL: frontendURL}
}

// Register creates a local account with a bcrypt-hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "name, email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, "already registered, please login")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// The unique index catches concurrent registrations that slipped past
		// the lookup above.
		if isDuplicateKeyError(err) {
			utils.Error(ctx, http.StatusConflict, "already registered, please login")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}

	utils.Created(ctx, "new user created", gin.H{"user": safeUser(user)})
}

// Login verifies credentials and issues a 7-day session token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "email and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Role, utils.SessionTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.Success(ctx, "login successful", gin.H{
		"token": token,
		"user":  safeUser(user),
	})
}

// ForgotPassword mails a reset link valid for 15 minutes.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "email is required")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found, please register")
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Role, utils.ResetTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate reset token")
		return
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s", strings.TrimSuffix(a.frontendURL, "/"), token)
	body := fmt.Sprintf(`<p>You requested a password reset</p>
<p>Click here to reset: <a href="%s">%s</a></p>
<p>This link is valid for 15 minutes.</p>`, resetLink, resetLink)

	if err := a.mailer.Send(user.Email, "Password Reset Request - Italics", body); err != nil {
		utils.Sugar.Errorf("reset mail to %s failed: %v", user.Email, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to send reset email")
		return
	}

	utils.Success(ctx, "password reset email sent", nil)
}

// ResetPassword verifies a reset token and updates only the password hash.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "password of at least 6 characters is required")
		return
	}

	claims, err := a.tokens.Verify(ctx.Param("token"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid or expired token")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to hash password")
		return
	}

	res := a.db.Model(&models.User{}).Where("id = ?", claims.UserID).Update("password_hash", hash)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	utils.Success(ctx, "password has been reset", nil)
}

// UpdateProfile updates name, phone number, password and photo for an account.
// Only the account owner or an admin may do this.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}

	requesterID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if uint(targetID) != requesterID && !isAdmin(a.db, ctx) {
		utils.Error(ctx, http.StatusForbidden, "you can only update your own profile")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(targetID)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	name := strings.TrimSpace(ctx.PostForm("name"))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, "name is required")
		return
	}

	updates := map[string]interface{}{"name": name}

	if phone := strings.TrimSpace(ctx.PostForm("phone_no")); phone != "" {
		if len(phone) > 10 || !isDigits(phone) {
			utils.Error(ctx, http.StatusBadRequest, "phone number must be max 10 digits")
			return
		}
		updates["phone_no"] = phone
	}

	if password := ctx.PostForm("password"); password != "" {
		if len(password) < 6 {
			utils.Error(ctx, http.StatusBadRequest, "password must be at least 6 characters long")
			return
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to hash password")
			return
		}
		updates["password_hash"] = hash
	}

	if file, header, err := ctx.Request.FormFile("photo"); err == nil {
		defer file.Close()
		if header.Size > maxPhotoBytes {
			utils.Error(ctx, http.StatusBadRequest, "photo size should be below 1 MB")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
		if err != nil || len(data) > maxPhotoBytes {
			utils.Error(ctx, http.StatusBadRequest, "photo size should be below 1 MB")
			return
		}
		updates["photo"] = data
		updates["photo_type"] = header.Header.Get("Content-Type")
	}

	if err := a.db.Model(&user).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			utils.Error(ctx, http.StatusConflict, "phone number already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to update profile")
		return
	}

	utils.Success(ctx, "profile updated", gin.H{"user": safeUser(user)})
}

// UserPhoto serves the stored profile photo bytes with their content type.
func (a *AuthController) UserPhoto(ctx *gin.Context) {
	var user models.User
	if err := a.db.Select("photo", "photo_type").First(&user, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}
	if len(user.Photo) == 0 {
		utils.Error(ctx, http.StatusNotFound, "photo not found")
		return
	}
	contentType := user.PhotoType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Data(http.StatusOK, contentType, user.Photo)
}

// AllUsers lists every account. Admin only (enforced in routing).
func (a *AuthController) AllUsers(ctx *gin.Context) {
	var users []models.User
	if err := a.db.Order("created_at DESC").Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to retrieve users")
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		items = append(items, safeUser(u))
	}
	utils.Success(ctx, "all users", gin.H{
		"no_of_users": len(items),
		"users":       items,
	})
}

// DeleteUser removes an account and its saved-blog references. Admin only.
func (a *AuthController) DeleteUser(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load user")
		return
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.SavedBlog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete user")
		return
	}

	utils.Success(ctx, "user deleted", nil)
}

// UpdateRole toggles an account between the enumerated roles. Admin only.
func (a *AuthController) UpdateRole(ctx *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "role is required")
		return
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		utils.Error(ctx, http.StatusBadRequest, "role must be user or admin")
		return
	}

	var user models.User
	if err := a.db.First(&user, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	if err := a.db.Model(&user).Update("role", req.Role).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update role")
		return
	}
	user.Role = req.Role

	utils.Success(ctx, "role changed", gin.H{"user": safeUser(user)})
}

// SaveBlog adds a blog to the requester's saved set. Idempotent: a repeat save
// hits the composite key and changes nothing.
func (a *AuthController) SaveBlog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	blogID, err := strconv.ParseUint(ctx.Param("blogId"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid blog id")
		return
	}

	var count int64
	if err := a.db.Model(&models.Blog{}).Where("id = ?", uint(blogID)).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusNotFound, "blog not found")
		return
	}

	entry := models.SavedBlog{UserID: userID, BlogID: uint(blogID)}
	if err := a.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to save blog")
		return
	}

	a.respondSavedBlogs(ctx, userID, "blog saved")
}

// UnsaveBlog removes a blog from the saved set; removing an absent entry is a
// no-op.
func (a *AuthController) UnsaveBlog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	blogID, err := strconv.ParseUint(ctx.Param("blogId"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid blog id")
		return
	}

	if err := a.db.Where("user_id = ? AND blog_id = ?", userID, uint(blogID)).Delete(&models.SavedBlog{}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to unsave blog")
		return
	}

	a.respondSavedBlogs(ctx, userID, "blog unsaved")
}

// SavedBlogs lists the requester's saved blogs in insertion order.
func (a *AuthController) SavedBlogs(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	a.respondSavedBlogs(ctx, userID, "saved blogs")
}

func (a *AuthController) respondSavedBlogs(ctx *gin.Context, userID uint, message string) {
	blogs, err := a.listSavedBlogs(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch saved blogs")
		return
	}
	utils.Success(ctx, message, gin.H{
		"saved_blogs":          blogs,
		"count_of_saved_blogs": len(blogs),
	})
}

func (a *AuthController) listSavedBlogs(userID uint) ([]models.Blog, error) {
	var blogs []models.Blog
	err := a.db.
		Joins("JOIN saved_blogs ON saved_blogs.blog_id = blogs.id AND saved_blogs.user_id = ?", userID).
		Order("saved_blogs.created_at ASC").
		Preload("Author").
		Preload("Category").
		Find(&blogs).Error
	if err != nil {
		return nil, err
	}
	return blogs, nil
}

// safeUser strips credentials and binary fields from user payloads.
func safeUser(user models.User) gin.H {
	h := gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	}
	if user.PhoneNo != nil {
		h["phone_no"] = *user.PhoneNo
	}
	if len(user.Photo) > 0 {
		h["has_photo"] = true
	}
	return h
}
