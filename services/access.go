package services

import "github.com/cppla/aiblog/models"

// Identity is the user a request acts as. A nil *Identity is anonymous.
type Identity struct {
	UserID   uint
	Username string
	Role     string
}

// IdentityOf builds the identity for a stored user.
func IdentityOf(u models.User) *Identity {
	return &Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// IsAdmin reports whether the identity holds the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == models.RoleAdmin
}

// RequireAuthenticated fails for anonymous callers.
func RequireAuthenticated(id *Identity) error {
	if id == nil || id.UserID == 0 {
		return ErrAuthentication
	}
	return nil
}

// RequireAdmin fails with ErrAuthentication for anonymous callers and
// ErrAuthorization for authenticated non-admins.
func RequireAdmin(id *Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}

// CanMutate reports whether id may edit or delete the post.
func CanMutate(id *Identity, post models.Post) bool {
	if id == nil {
		return false
	}
	return id.IsAdmin() || (id.UserID != 0 && id.UserID == post.AuthorID)
}

func requireMutate(id *Identity, post models.Post) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !CanMutate(id, post) {
		return forbidden("only the author or an admin may change this post")
	}
	return nil
}
