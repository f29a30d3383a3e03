package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RonnelR/italics-api/middleware"
	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/storage"
	"github.com/RonnelR/italics-api/utils"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeImageStore struct {
	uploads    int
	destroys   int
	destroyed  []string
	failNext   bool
	destroyErr error
}

func (f *fakeImageStore) Upload(ctx context.Context, r io.Reader, contentType, folder string) (storage.Image, error) {
	if f.failNext {
		f.failNext = false
		return storage.Image{}, fmt.Errorf("upload rejected")
	}
	f.uploads++
	id := fmt.Sprintf("%s/img-%d", folder, f.uploads)
	return storage.Image{URL: "https://cdn.test/" + id, ID: id}, nil
}

// Destroy records every attempt, including ones told to fail.
func (f *fakeImageStore) Destroy(ctx context.Context, id string) error {
	f.destroys++
	f.destroyed = append(f.destroyed, id)
	return f.destroyErr
}

type fakeMailer struct {
	sent    int
	lastTo  string
	lastSub string
	body    string
	err     error
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.lastTo = to
	f.lastSub = subject
	f.body = htmlBody
	return nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *utils.TokenService
	images *fakeImageStore
	mailer *fakeMailer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:controllers-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Blog{},
		&models.Comment{},
		&models.BlogLike{},
		&models.SavedBlog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens := utils.NewTokenService(testSecret)
	images := &fakeImageStore{}
	mailer := &fakeMailer{}

	authController := NewAuthController(db, tokens, mailer, "http://localhost:3000")
	blogController := NewBlogController(db, images, "blogs")
	categoryController := NewCategoryController(db)

	authed := middleware.AuthRequired(tokens)
	admin := middleware.AdminRequired(db)

	r := gin.New()
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/forgot-password", authController.ForgotPassword)
	authGroup.POST("/reset-password/:token", authController.ResetPassword)
	authGroup.GET("/user-photo/:id", authController.UserPhoto)
	authGroup.PUT("/update-profile/:id", authed, authController.UpdateProfile)
	authGroup.PATCH("/save-blog/:blogId", authed, authController.SaveBlog)
	authGroup.DELETE("/save-blog/:blogId", authed, authController.UnsaveBlog)
	authGroup.GET("/saved-blogs", authed, authController.SavedBlogs)
	authGroup.GET("/all-users", authed, admin, authController.AllUsers)
	authGroup.DELETE("/delete-user/:id", authed, admin, authController.DeleteUser)
	authGroup.PATCH("/update-role/:id", authed, admin, authController.UpdateRole)

	blogGroup := api.Group("/blog")
	blogGroup.GET("/all-blogs", blogController.AllBlogs)
	blogGroup.GET("/user-blogs/:userId", blogController.UserBlogs)
	blogGroup.GET("/single-blog/:id", blogController.SingleBlog)
	blogGroup.POST("/create-blog", authed, blogController.CreateBlog)
	blogGroup.POST("/edit-blog/:id", authed, blogController.EditBlog)
	blogGroup.DELETE("/delete-blog/:id", authed, blogController.DeleteBlog)
	blogGroup.PATCH("/like/:id", authed, blogController.Like)
	blogGroup.PATCH("/unlike/:id", authed, blogController.Unlike)
	blogGroup.POST("/comment/:id", authed, blogController.AddComment)
	blogGroup.PUT("/:blogId/comments/:commentId", authed, blogController.EditComment)
	blogGroup.DELETE("/comment/:blogId/:commentId", authed, blogController.DeleteComment)

	categoryGroup := api.Group("/category")
	categoryGroup.GET("/categories", categoryController.GetCategories)
	categoryGroup.POST("/create-category", authed, admin, categoryController.CreateCategory)
	categoryGroup.DELETE("/delete-category/:id", authed, admin, categoryController.DeleteCategory)

	return &testEnv{db: db, router: r, tokens: tokens, images: images, mailer: mailer}
}

// createUser inserts an account directly and returns it with a session token.
func (e *testEnv) createUser(t *testing.T, name, email, role string) (models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	token, err := e.tokens.Issue(user.ID, user.Role, utils.SessionTokenTTL)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return user, token
}

func (e *testEnv) createCategory(t *testing.T, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: utils.Slugify(name)}
	if err := e.db.Create(&category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return category
}

func (e *testEnv) createBlog(t *testing.T, title string, authorID, categoryID uint) models.Blog {
	t.Helper()
	blog := models.Blog{
		Title:      title,
		Slug:       utils.Slugify(title),
		Excerpt:    "excerpt",
		Content:    "<p>content</p>",
		CoverURL:   "https://cdn.test/blogs/seed",
		CoverID:    "blogs/seed",
		AuthorID:   authorID,
		CategoryID: categoryID,
	}
	blog.SetTagList([]string{"go"})
	if err := e.db.Create(&blog).Error; err != nil {
		t.Fatalf("failed to seed blog: %v", err)
	}
	return blog
}

// doJSON performs a JSON request and decodes the envelope.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, utils.JSONResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var envelope utils.JSONResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, envelope
}

// doMultipart performs a multipart form request, attaching files as
// fieldname -> content.
func (e *testEnv) doMultipart(t *testing.T, method, path, token string, fields map[string]string, files map[string][]byte) (*httptest.ResponseRecorder, utils.JSONResponse) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("failed to create file part %s: %v", name, err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write file part %s: %v", name, err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var envelope utils.JSONResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, envelope
}

func dataMap(t *testing.T, envelope utils.JSONResponse) map[string]interface{} {
	t.Helper()
	m, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %#v", envelope.Data)
	}
	return m
}

func ensureStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
