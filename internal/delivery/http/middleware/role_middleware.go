package middleware

import (
	"net/http"

	"medical-office-api/internal/domain/entity"
	"medical-office-api/pkg/response"
)

// RequireRole rejects callers whose role is not in allowedRoleIDs.
// Must run after AuthMiddleware.Authenticate.
func RequireRole(allowedRoleIDs ...int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, ok := GetRoleIDFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			for _, allowed := range allowedRoleIDs {
				if roleID == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "You don't have permission to access this resource")
		})
	}
}

func RequireSecretary(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDSecretary)(next)
}

func RequireSecretaryOrDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDSecretary, entity.RoleIDDoctor)(next)
}
