package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

// Registration is the candidate account submitted at sign-up.
type Registration struct {
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
}

// ProfilePatch lists the profile fields a user may change. Nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=50"`
	Avatar    *string `json:"avatar" validate:"omitempty,max=512"`
}

type passwordChange struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserOptions configures a UserService.
type UserOptions struct {
	BcryptCost     int
	AdminUsernames []string
}

// UserService is the credential store. It is the only writer of users.password_hash.
type UserService struct {
	db        *gorm.DB
	log       *zap.Logger
	validate  *validator.Validate
	cost      int
	admins    map[string]struct{}
	dummyHash string
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB, opts UserOptions, log *zap.Logger) *UserService {
	admins := make(map[string]struct{}, len(opts.AdminUsernames))
	for _, u := range opts.AdminUsernames {
		if u = strings.TrimSpace(u); u != "" {
			admins[u] = struct{}{}
		}
	}
	// Compared against when an email is unknown so both failure paths cost one bcrypt compare.
	dummy, _ := utils.HashPassword("aiblog-unknown-account", opts.BcryptCost)
	return &UserService{
		db:        db,
		log:       log,
		validate:  newValidator(),
		cost:      opts.BcryptCost,
		admins:    admins,
		dummyHash: dummy,
	}
}

// Register creates an account and returns it. The stored hash is never returned to callers.
func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if err := validateStruct(s.validate, reg); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", reg.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("username", "username already exists")
	}
	if err := db.Model(&models.User{}).Where("email = ?", reg.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("email", "email already registered")
	}

	hash, err := s.hash(reg.Password)
	if err != nil {
		return nil, err
	}

	role := models.RoleUser
	if _, ok := s.admins[reg.Username]; ok {
		role = models.RoleAdmin
	}
	user := models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Avatar:       "default-avatar.jpg",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateAccount(ctx, reg)
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", role))
	user.PasswordHash = ""
	return &user, nil
}

// VerifyCredentials checks an email/password pair. Unknown emails and wrong
// passwords fail identically with ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		utils.CheckPassword(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	user.PasswordHash = ""
	return &user, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	user.PasswordHash = ""
	return &user, nil
}

// IdentityFor resolves the user a valid token names. Users that vanished or
// were disabled after the token was issued are rejected.
func (s *UserService) IdentityFor(ctx context.Context, userID uint) (*Identity, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return IdentityOf(*user), nil
}

// UpdateProfile writes only the profile columns present in patch.
func (s *UserService) UpdateProfile(ctx context.Context, id *Identity, patch ProfilePatch) (*models.User, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, patch); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*patch.LastName)
	}
	if patch.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*patch.Avatar)
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", id.UserID).
			Select("first_name", "last_name", "avatar").
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return s.Get(ctx, id.UserID)
}

// SetPassword replaces the caller's password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, id *Identity, current, next string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if err := validateStruct(s.validate, passwordChange{Password: next}); err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user")
		}
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return err
	}
	s.log.Info("password changed", zap.Uint("user_id", user.ID))
	return nil
}

// SetActive enables or disables an account. Admin only; accounts are never hard-deleted.
func (s *UserService) SetActive(ctx context.Context, admin *Identity, userID uint, active bool) (*models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("user")
	}
	s.log.Info("user active flag changed", zap.Uint("user_id", userID), zap.Bool("active", active), zap.Uint("by", admin.UserID))
	return s.Get(ctx, userID)
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct returns the first violated field constraint as a FieldError.
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(fe.Field(), describe(fe))
	}
	return invalid("body", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "cannot be more than " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// hash reports bcrypt's 72 byte limit as a validation error. The validator
// counts characters, so multibyte passwords can still reach it.
func (s *UserService) hash(password string) (string, error) {
	hash, err := utils.HashPassword(password, s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalid("password", "cannot be more than 72 bytes")
	}
	return hash, err
}

// duplicateAccount names the column that lost a concurrent insert.
func (s *UserService) duplicateAccount(ctx context.Context, reg Registration) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", reg.Username).Count(&count).Error
	if err == nil && count == 0 {
		return conflict("email", "email already registered")
	}
	return conflict("username", "username already exists")
}
