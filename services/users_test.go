package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cppla/aiblog/models"
)

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, Registration{
		Username: "alice", Email: "alice@example.com", Password: "secret1",
		FirstName: "Alice", LastName: "Liddell",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.PasswordHash != "" {
		t.Fatal("register returned the password hash")
	}
	if u.Role != models.RoleUser || !u.IsActive {
		t.Fatalf("unexpected defaults: role=%q active=%v", u.Role, u.IsActive)
	}

	var stored models.User
	if err := f.db.First(&stored, u.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}

	got, err := f.users.VerifyCredentials(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("verify returned user %d, want %d", got.ID, u.ID)
	}

	for _, pw := range []string{"secret2", "", "SECRET1"} {
		if _, err := f.users.VerifyCredentials(ctx, "alice@example.com", pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("verify(%q) err = %v, want ErrInvalidCredentials", pw, err)
		}
	}
}

func TestVerifyUnknownEmailIsIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob")

	_, errUnknown := f.users.VerifyCredentials(context.Background(), "nobody@example.com", "password1")
	_, errWrong := f.users.VerifyCredentials(context.Background(), "bob@example.com", "wrong-password")
	if !errors.Is(errUnknown, ErrAuthentication) || errUnknown != errWrong {
		t.Fatalf("unknown=%v wrong=%v, want identical authentication errors", errUnknown, errWrong)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	base := Registration{Username: "carol", Email: "carol@example.com", Password: "secret1", FirstName: "C", LastName: "D"}

	tests := []struct {
		name  string
		edit  func(r *Registration)
		field string
	}{
		{"short username", func(r *Registration) { r.Username = "ab" }, "username"},
		{"long username", func(r *Registration) { r.Username = "abcdefghijklmnopqrstuvwxyz12345" }, "username"},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *Registration) { r.Password = "12345" }, "password"},
		{"long password", func(r *Registration) { r.Password = strings.Repeat("x", 80) }, "password"},
		{"multibyte password over 72 bytes", func(r *Registration) { r.Password = strings.Repeat("€", 40) }, "password"},
		{"missing first name", func(r *Registration) { r.FirstName = "  " }, "firstName"},
		{"long last name", func(r *Registration) {
			r.LastName = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		}, "lastName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.edit(&r)
			_, err := f.users.Register(context.Background(), r)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("field error = %v, want field %q", err, tt.field)
			}
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dave")
	ctx := context.Background()

	_, err := f.users.Register(ctx, Registration{
		Username: "dave", Email: "other@example.com", Password: "secret1", FirstName: "D", LastName: "D",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username err = %v, want ErrConflict", err)
	}

	_, err = f.users.Register(ctx, Registration{
		Username: "dave2", Email: "dave@example.com", Password: "secret1", FirstName: "D", LastName: "D",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}

	// uniqueness is case-sensitive exact match
	if _, err := f.users.Register(ctx, Registration{
		Username: "Dave", Email: "Dave@example.com", Password: "secret1", FirstName: "D", LastName: "D",
	}); err != nil {
		t.Fatalf("case-different registration: %v", err)
	}
}

func TestAdminBootstrap(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "admin")
	if !id.IsAdmin() {
		t.Fatalf("admin username registered with role %q", id.Role)
	}
}

func TestProfileUpdateDoesNotRehash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "erin")

	var before models.User
	f.db.First(&before, id.UserID)

	first := "Erin"
	u, err := f.users.UpdateProfile(ctx, id, ProfilePatch{FirstName: &first})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.FirstName != "Erin" || u.LastName != "User" {
		t.Fatalf("profile = %s %s", u.FirstName, u.LastName)
	}

	var after models.User
	f.db.First(&after, id.UserID)
	if after.PasswordHash != before.PasswordHash {
		t.Fatal("profile update rotated the password hash")
	}
	if _, err := f.users.VerifyCredentials(ctx, "erin@example.com", "password1"); err != nil {
		t.Fatalf("verify after profile update: %v", err)
	}
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "frank")

	if err := f.users.SetPassword(ctx, id, "wrong", "newpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current err = %v", err)
	}
	if err := f.users.SetPassword(ctx, id, "password1", "123"); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password err = %v", err)
	}
	if err := f.users.SetPassword(ctx, id, "password1", strings.Repeat("x", 80)); !errors.Is(err, ErrValidation) {
		t.Fatalf("long password err = %v", err)
	}
	if err := f.users.SetPassword(ctx, id, "password1", strings.Repeat("€", 40)); !errors.Is(err, ErrValidation) {
		t.Fatalf("multibyte long password err = %v", err)
	}
	if err := f.users.SetPassword(ctx, id, "password1", "newpass1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := f.users.VerifyCredentials(ctx, "frank@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still valid: %v", err)
	}
	if _, err := f.users.VerifyCredentials(ctx, "frank@example.com", "newpass1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if err := f.users.SetPassword(ctx, nil, "a", "bbbbbb"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("anonymous set password err = %v", err)
	}
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin")
	user := f.register(t, "gina")

	if _, err := f.users.SetActive(ctx, user, admin.UserID, false); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("non-admin disable err = %v", err)
	}
	u, err := f.users.SetActive(ctx, admin, user.UserID, false)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if u.IsActive {
		t.Fatal("user still active")
	}
	if _, err := f.users.VerifyCredentials(ctx, "gina@example.com", "password1"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled login err = %v", err)
	}
	if _, err := f.users.IdentityFor(ctx, user.UserID); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("disabled identity err = %v", err)
	}
	if _, err := f.users.SetActive(ctx, admin, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestIdentityForMissingUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.users.IdentityFor(context.Background(), 42); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestDuplicateAccountNamesCollidingField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "hank")

	tests := []struct {
		name  string
		reg   Registration
		field string
	}{
		{"username", Registration{Username: "hank", Email: "fresh@example.com"}, "username"},
		{"email", Registration{Username: "fresh", Email: "hank@example.com"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.users.duplicateAccount(ctx, tt.reg)
			var fe *FieldError
			if !errors.Is(err, ErrConflict) || !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("err = %v, want conflict on %q", err, tt.field)
			}
		})
	}
}
