package authz

import (
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/scope"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

// Caller returns the signed-in user and the scope resolved for this
// request, honoring any explicit scope selection the request carries.
func Caller(r *http.Request) (*models.User, scope.Scope, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, scope.Scope{}, apierr.Unauthorized()
	}
	return u, scope.Resolve(u, scope.FromRequest(r)), nil
}

// IsSuperAdmin reports whether the request's user holds SuperAdmin.
func IsSuperAdmin(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.IsSuperAdmin()
}
