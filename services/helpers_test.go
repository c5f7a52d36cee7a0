package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/models"
)

type fixture struct {
	db         *gorm.DB
	users      *UserService
	posts      *PostService
	categories *CategoryService
	comments   *CommentService
	clock      *fakeClock
}

// fakeClock advances one second on every reading so creation order is total.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return &fixture{
		db:         db,
		users:      NewUserService(db, UserOptions{BcryptCost: bcrypt.MinCost, AdminUsernames: []string{"admin"}}, log),
		posts:      NewPostService(db, 0, log).WithClock(clock.Now),
		categories: NewCategoryService(db, log),
		comments:   NewCommentService(db, log).WithClock(clock.Now),
		clock:      clock,
	}
}

func (f *fixture) register(t *testing.T, username string) *Identity {
	t.Helper()
	u, err := f.users.Register(context.Background(), Registration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password1",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return IdentityOf(*u)
}

func (f *fixture) category(t *testing.T, name string) models.Category {
	t.Helper()
	admin := &Identity{UserID: 1, Username: "admin", Role: models.RoleAdmin}
	c, err := f.categories.Create(context.Background(), admin, CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return *c
}

func (f *fixture) post(t *testing.T, author *Identity, categoryID uint, title string) *models.Post {
	t.Helper()
	p, err := f.posts.Create(context.Background(), author, PostDraft{
		Title:      title,
		Content:    "content of " + title,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return p
}
