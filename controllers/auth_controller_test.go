package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	rec, envelope := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Ronnel",
		"email":    "Ronnel@Example.com",
		"password": "secret123",
	})
	ensureStatus(t, rec, http.StatusCreated)
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %+v", envelope)
	}

	var user models.User
	if err := env.db.Where("email = ?", "ronnel@example.com").First(&user).Error; err != nil {
		t.Fatalf("registered user not found with lowercased email: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("new users must get the user role, got %q", user.Role)
	}
	if user.PasswordHash == "secret123" {
		t.Fatal("password must not be stored in plain text")
	}

	rec, envelope = env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ronnel@example.com",
		"password": "secret123",
	})
	ensureStatus(t, rec, http.StatusOK)
	data := dataMap(t, envelope)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login must return a token")
	}
	claims, err := env.tokens.Verify(token)
	if err != nil {
		t.Fatalf("login token failed verification: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleUser {
		t.Fatalf("token claims mismatch: %+v", claims)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "First", "dup@example.com", models.RoleUser)

	rec, envelope := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Second",
		"email":    "dup@example.com",
		"password": "secret123",
	})
	ensureStatus(t, rec, http.StatusConflict)
	if envelope.Success {
		t.Fatal("duplicate registration must not report success")
	}

	var count int64
	env.db.Model(&models.User{}).Where("email = ?", "dup@example.com").Count(&count)
	if count != 1 {
		t.Fatalf("expected a single account, found %d", count)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "User", "user@example.com", models.RoleUser)

	rec, _ := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	ensureStatus(t, rec, http.StatusUnauthorized)
}

func TestForgotPasswordSendsResetLink(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "User", "user@example.com", models.RoleUser)

	rec, _ := env.doJSON(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "user@example.com",
	})
	ensureStatus(t, rec, http.StatusOK)
	if env.mailer.sent != 1 || env.mailer.lastTo != "user@example.com" {
		t.Fatalf("expected one reset mail to the account, got %d to %q", env.mailer.sent, env.mailer.lastTo)
	}
	if !strings.Contains(env.mailer.body, "http://localhost:3000/reset-password/") {
		t.Fatalf("reset mail must carry the frontend reset link, got %q", env.mailer.body)
	}

	rec, _ = env.doJSON(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})
	ensureStatus(t, rec, http.StatusNotFound)
}

func TestResetPassword(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := env.createUser(t, "User", "user@example.com", models.RoleUser)
	oldHash := user.PasswordHash

	token, err := env.tokens.Issue(user.ID, user.Role, utils.ResetTokenTTL)
	if err != nil {
		t.Fatalf("failed to issue reset token: %v", err)
	}

	rec, _ := env.doJSON(t, http.MethodPost, "/api/v1/auth/reset-password/"+token, "", map[string]string{
		"password": "brand-new-pass",
	})
	ensureStatus(t, rec, http.StatusOK)

	var updated models.User
	if err := env.db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if updated.PasswordHash == oldHash {
		t.Fatal("password hash must change after reset")
	}
	if updated.Name != user.Name || updated.Email != user.Email || updated.Role != user.Role {
		t.Fatal("reset must only touch the password hash")
	}
	if !utils.CheckPassword(updated.PasswordHash, "brand-new-pass") {
		t.Fatal("new password must verify after reset")
	}
	if utils.CheckPassword(updated.PasswordHash, "secret123") {
		t.Fatal("old password must stop working after reset")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := env.createUser(t, "User", "user@example.com", models.RoleUser)

	expired, err := env.tokens.Issue(user.ID, user.Role, -time.Minute)
	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}

	rec, _ := env.doJSON(t, http.MethodPost, "/api/v1/auth/reset-password/"+expired, "", map[string]string{
		"password": "brand-new-pass",
	})
	ensureStatus(t, rec, http.StatusBadRequest)

	if !utils.CheckPassword(mustReload(t, env, user.ID).PasswordHash, "secret123") {
		t.Fatal("an expired reset token must not change the password")
	}
}

func mustReload(t *testing.T, env *testEnv, id uint) models.User {
	t.Helper()
	var user models.User
	if err := env.db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to reload user %d: %v", id, err)
	}
	return user
}

func TestUpdateProfileOwnership(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := env.createUser(t, "Owner", "owner@example.com", models.RoleUser)
	_, otherToken := env.createUser(t, "Other", "other@example.com", models.RoleUser)
	_, adminToken := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	path := fmt.Sprintf("/api/v1/auth/update-profile/%d", owner.ID)

	rec, _ := env.doMultipart(t, http.MethodPut, path, otherToken, map[string]string{"name": "Hacked"}, nil)
	ensureStatus(t, rec, http.StatusForbidden)
	if mustReload(t, env, owner.ID).Name != "Owner" {
		t.Fatal("a foreign account must not be able to edit the profile")
	}

	rec, _ = env.doMultipart(t, http.MethodPut, path, ownerToken, map[string]string{"name": "Renamed"}, nil)
	ensureStatus(t, rec, http.StatusOK)
	if mustReload(t, env, owner.ID).Name != "Renamed" {
		t.Fatal("owner update must apply")
	}

	rec, _ = env.doMultipart(t, http.MethodPut, path, adminToken, map[string]string{"name": "Admin Renamed"}, nil)
	ensureStatus(t, rec, http.StatusOK)
	if mustReload(t, env, owner.ID).Name != "Admin Renamed" {
		t.Fatal("admins may edit any profile")
	}
}

func TestUpdateProfilePhoneValidation(t *testing.T) {
	env := setupTestEnv(t)
	user, token := env.createUser(t, "User", "user@example.com", models.RoleUser)
	path := fmt.Sprintf("/api/v1/auth/update-profile/%d", user.ID)

	for _, bad := range []string{"12345678901", "123-456-78", "abc1234567"} {
		rec, _ := env.doMultipart(t, http.MethodPut, path, token,
			map[string]string{"name": "User", "phone_no": bad}, nil)
		ensureStatus(t, rec, http.StatusBadRequest)
	}

	rec, _ := env.doMultipart(t, http.MethodPut, path, token,
		map[string]string{"name": "User", "phone_no": "0123456789"}, nil)
	ensureStatus(t, rec, http.StatusOK)
	reloaded := mustReload(t, env, user.ID)
	if reloaded.PhoneNo == nil || *reloaded.PhoneNo != "0123456789" {
		t.Fatalf("valid phone must persist, got %v", reloaded.PhoneNo)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := setupTestEnv(t)
	_, userToken := env.createUser(t, "User", "user@example.com", models.RoleUser)
	victim, _ := env.createUser(t, "Victim", "victim@example.com", models.RoleUser)
	_, adminToken := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	rec, _ := env.doJSON(t, http.MethodGet, "/api/v1/auth/all-users", userToken, nil)
	ensureStatus(t, rec, http.StatusForbidden)

	rec, _ = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/auth/delete-user/%d", victim.ID), userToken, nil)
	ensureStatus(t, rec, http.StatusForbidden)
	var count int64
	env.db.Model(&models.User{}).Where("id = ?", victim.ID).Count(&count)
	if count != 1 {
		t.Fatal("forbidden delete must leave the account untouched")
	}

	rec, _ = env.doJSON(t, http.MethodGet, "/api/v1/auth/all-users", "", nil)
	ensureStatus(t, rec, http.StatusUnauthorized)

	rec, envelope := env.doJSON(t, http.MethodGet, "/api/v1/auth/all-users", adminToken, nil)
	ensureStatus(t, rec, http.StatusOK)
	data := dataMap(t, envelope)
	if n, _ := data["no_of_users"].(float64); int(n) != 3 {
		t.Fatalf("expected 3 users, got %v", data["no_of_users"])
	}
}

func TestUpdateRoleGrantsAdminAccess(t *testing.T) {
	env := setupTestEnv(t)
	user, userToken := env.createUser(t, "User", "user@example.com", models.RoleUser)
	_, adminToken := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	rec, _ := env.doJSON(t, http.MethodGet, "/api/v1/auth/all-users", userToken, nil)
	ensureStatus(t, rec, http.StatusForbidden)

	rec, _ = env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/v1/auth/update-role/%d", user.ID), adminToken, map[string]string{"role": "superuser"})
	ensureStatus(t, rec, http.StatusBadRequest)

	rec, _ = env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/v1/auth/update-role/%d", user.ID), adminToken, map[string]string{"role": "admin"})
	ensureStatus(t, rec, http.StatusOK)
	if mustReload(t, env, user.ID).Role != models.RoleAdmin {
		t.Fatal("role change must persist")
	}

	// The admin gate reads the stored role, so the promotion applies to the
	// token issued before it.
	rec, _ = env.doJSON(t, http.MethodGet, "/api/v1/auth/all-users", userToken, nil)
	ensureStatus(t, rec, http.StatusOK)
}

func TestDeleteUserCleansSavedBlogs(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := env.createUser(t, "User", "user@example.com", models.RoleUser)
	author, _ := env.createUser(t, "Author", "author@example.com", models.RoleUser)
	_, adminToken := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	category := env.createCategory(t, "Tech")
	blog := env.createBlog(t, "Kept Around", author.ID, category.ID)

	if err := env.db.Create(&models.SavedBlog{UserID: user.ID, BlogID: blog.ID}).Error; err != nil {
		t.Fatalf("failed to seed saved blog: %v", err)
	}

	rec, _ := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/auth/delete-user/%d", user.ID), adminToken, nil)
	ensureStatus(t, rec, http.StatusOK)

	var count int64
	env.db.Model(&models.SavedBlog{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Fatal("deleting an account must remove its saved-blog entries")
	}
}

func TestSaveBlogIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	user, token := env.createUser(t, "User", "user@example.com", models.RoleUser)
	author, _ := env.createUser(t, "Author", "author@example.com", models.RoleUser)
	category := env.createCategory(t, "Tech")
	blog := env.createBlog(t, "Worth Saving", author.ID, category.ID)

	path := fmt.Sprintf("/api/v1/auth/save-blog/%d", blog.ID)
	for i := 0; i < 3; i++ {
		rec, envelope := env.doJSON(t, http.MethodPatch, path, token, nil)
		ensureStatus(t, rec, http.StatusOK)
		data := dataMap(t, envelope)
		if n, _ := data["count_of_saved_blogs"].(float64); int(n) != 1 {
			t.Fatalf("save attempt %d: expected exactly one saved blog, got %v", i+1, data["count_of_saved_blogs"])
		}
	}

	var count int64
	env.db.Model(&models.SavedBlog{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("repeat saves must not add rows, found %d", count)
	}

	unsave := fmt.Sprintf("/api/v1/auth/save-blog/%d", blog.ID)
	for i := 0; i < 2; i++ {
		rec, envelope := env.doJSON(t, http.MethodDelete, unsave, token, nil)
		ensureStatus(t, rec, http.StatusOK)
		data := dataMap(t, envelope)
		if n, _ := data["count_of_saved_blogs"].(float64); int(n) != 0 {
			t.Fatalf("unsave attempt %d: expected no saved blogs, got %v", i+1, data["count_of_saved_blogs"])
		}
	}

	rec, _ := env.doJSON(t, http.MethodPatch, "/api/v1/auth/save-blog/999999", token, nil)
	ensureStatus(t, rec, http.StatusNotFound)
}

func TestSavedBlogsKeepInsertionOrder(t *testing.T) {
	env := setupTestEnv(t)
	user, token := env.createUser(t, "User", "user@example.com", models.RoleUser)
	author, _ := env.createUser(t, "Author", "author@example.com", models.RoleUser)
	category := env.createCategory(t, "Tech")
	first := env.createBlog(t, "First Read", author.ID, category.ID)
	second := env.createBlog(t, "Second Read", author.ID, category.ID)

	// Explicit timestamps keep the order stable regardless of clock precision.
	base := time.Now().Add(-time.Hour)
	for i, blog := range []models.Blog{second, first} {
		entry := models.SavedBlog{UserID: user.ID, BlogID: blog.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := env.db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed saved blog: %v", err)
		}
	}

	rec, envelope := env.doJSON(t, http.MethodGet, "/api/v1/auth/saved-blogs", token, nil)
	ensureStatus(t, rec, http.StatusOK)
	data := dataMap(t, envelope)
	blogs, _ := data["saved_blogs"].([]interface{})
	if len(blogs) != 2 {
		t.Fatalf("expected 2 saved blogs, got %d", len(blogs))
	}
	firstEntry := blogs[0].(map[string]interface{})
	if title, _ := firstEntry["title"].(string); title != "Second Read" {
		t.Fatalf("saved blogs must list in save order, first was %q", title)
	}
}
