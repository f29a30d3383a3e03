package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in
	// the gin context.
	ContextUserIDKey = "user_id"
	// ContextRoleKey stores the authenticated role inside the gin context.
	ContextRoleKey = "role"
)

// AuthRequired ensures the request carries a valid bearer token and attaches
// the resolved identity and role to the context. Authentication failures are
// 401; role checks belong to AdminRequired.
func AuthRequired(tokens *utils.TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "invalid or expired token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Next()
	}
}

// AdminRequired gates admin-only operations. The role is re-read from the
// database rather than trusted from the token, so a role change applies to
// tokens issued before it. A valid identity with the wrong role is an
// authorization failure, distinct from authentication failure.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(ContextUserIDKey)
		if !exists {
			utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
			ctx.Abort()
			return
		}
		userID, _ := value.(uint)

		var user models.User
		if err := db.Select("role").First(&user, userID).Error; err != nil {
			// A token whose account no longer exists is a stale identity.
			utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
			ctx.Abort()
			return
		}
		if user.Role != models.RoleAdmin {
			utils.Error(ctx, http.StatusForbidden, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Set(ContextRoleKey, user.Role)
		ctx.Next()
	}
}
