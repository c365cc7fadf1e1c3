package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"
	"blog_backend/internal/platform/database/dbtest"

	"golang.org/x/crypto/bcrypt"
)

type services struct {
	creds    *CredentialStore
	auth     *AuthService
	users    *UserService
	blog     *BlogService
	taxonomy *TaxonomyService
}

func newServices(t *testing.T, genericErrors bool) *services {
	t.Helper()
	db := dbtest.New(t)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	tagRepo := repository.NewTagRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)

	creds := NewCredentialStore(userRepo, tokenRepo, genericErrors)
	return &services{
		creds:    creds,
		auth:     NewAuthService(userRepo, creds, bcrypt.MinCost),
		users:    NewUserService(userRepo),
		blog:     NewBlogService(postRepo, tagRepo, categoryRepo, userRepo, db),
		taxonomy: NewTaxonomyService(categoryRepo, tagRepo),
	}
}

func (s *services) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := s.auth.Register(context.Background(), RegisterRequest{Username: username, Email: username + "@example.com", Password: "pw-" + username})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (s *services) category(t *testing.T, name string) *model.Category {
	t.Helper()
	c, err := s.taxonomy.CreateCategory(context.Background(), CreateCategoryRequest{Name: name})
	if err != nil {
		t.Fatalf("category %s: %v", name, err)
	}
	return c
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *common.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *common.ValidationError", err)
	}
	return verr.Fields
}

func TestRegisterValidation(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()

	u := s.register(t, "alice")
	if u.PasswordHash == "" || strings.Contains(u.PasswordHash, "pw-alice") {
		t.Fatalf("password stored in clear: %q", u.PasswordHash)
	}
	if u.IsStaff || !u.IsActive {
		t.Fatalf("new user flags: staff=%v active=%v", u.IsStaff, u.IsActive)
	}

	_, err := s.auth.Register(ctx, RegisterRequest{Username: "alice", Password: "x"})
	if f := fieldErrors(t, err); f["username"][0] != msgUsernameTaken {
		t.Fatalf("duplicate: %v", f)
	}

	_, err = s.auth.Register(ctx, RegisterRequest{Username: "bad name!", Email: "nope"})
	f := fieldErrors(t, err)
	for _, field := range []string{"username", "email", "password"} {
		if len(f[field]) == 0 {
			t.Errorf("missing error for %s in %v", field, f)
		}
	}
}

func TestLoginIssuesSameTokenUntilLogout(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	s.register(t, "alice")

	first, err := s.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(first.Token) != 40 {
		t.Fatalf("token %q", first.Token)
	}
	second, err := s.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err != nil || second.Token != first.Token {
		t.Fatalf("second login token %q, err %v; want %q", second.Token, err, first.Token)
	}

	who, err := s.creds.Resolve(ctx, first.Token)
	if err != nil || who == nil || who.Username != "alice" {
		t.Fatalf("Resolve = %+v, %v", who, err)
	}

	if err := s.auth.Logout(ctx, who); err != nil {
		t.Fatal(err)
	}
	if who, err := s.creds.Resolve(ctx, first.Token); err != nil || who != nil {
		t.Fatalf("Resolve after logout = %+v, %v", who, err)
	}

	third, _ := s.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if third.Token == first.Token {
		t.Fatal("token reused after logout")
	}
}

func TestResolveUnknownAndEmpty(t *testing.T) {
	s := newServices(t, false)
	for _, key := range []string{"", "deadbeef"} {
		if u, err := s.creds.Resolve(context.Background(), key); u != nil || err != nil {
			t.Errorf("Resolve(%q) = %+v, %v", key, u, err)
		}
	}
}

func TestIssueOrReuseRetriesKeyCollision(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	aliceKey, err := s.creds.IssueOrReuse(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	keys := []string{aliceKey, "fresh-key"}
	s.creds.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}
	bobKey, err := s.creds.IssueOrReuse(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if bobKey != "fresh-key" {
		t.Fatalf("bob key = %q", bobKey)
	}
	if u, _ := s.creds.Resolve(ctx, aliceKey); u == nil || u.ID != alice.ID {
		t.Fatalf("alice's key now resolves to %+v", u)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	tech := s.category(t, "Tech")

	const workers = 16
	var wg sync.WaitGroup
	keys := make([]string, workers)
	posts := make([]*model.Post, workers)
	errs := make([]error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = s.creds.IssueOrReuse(ctx, alice)
		}(i)
		go func(i int) {
			defer wg.Done()
			posts[i], errs[workers+i] = s.blog.CreatePost(ctx, alice, CreatePostRequest{
				Title: "post", Content: "body", Category: tech.ID, Tags: []string{"go", "sql"},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	for _, k := range keys {
		if k != keys[0] {
			t.Fatalf("distinct tokens issued: %q and %q", keys[0], k)
		}
	}
	for _, p := range posts {
		if strings.Join(p.Tags, ",") != "go,sql" {
			t.Fatalf("post %s tags = %v", p.ID, p.Tags)
		}
	}
	tags, err := s.taxonomy.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %v, want go and sql once each", tags)
	}
}

func TestAuthenticateErrors(t *testing.T) {
	tests := []struct {
		name     string
		generic  bool
		username string
		password string
		disable  bool
		message  string
		is       error
	}{
		{"unknown user", false, "ghost", "x", false, msgUserDoesNotExist, common.ErrInvalidCredentials},
		{"unknown user generic", true, "ghost", "x", false, msgBadCredentials, common.ErrInvalidCredentials},
		{"wrong password", false, "alice", "nope", false, msgBadCredentials, common.ErrInvalidCredentials},
		{"inactive", false, "alice", "pw-alice", true, msgBadCredentials, common.ErrInactiveAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServices(t, tt.generic)
			ctx := context.Background()
			alice := s.register(t, "alice")
			if tt.disable {
				alice.IsActive = false
				if err := s.users.userRepo.Update(ctx, nil, alice); err != nil {
					t.Fatal(err)
				}
			}

			_, err := s.creds.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
			f := fieldErrors(t, err)
			if len(f[nonFieldErrors]) != 1 || f[nonFieldErrors][0] != tt.message {
				t.Fatalf("fields = %v", f)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	s.register(t, "bob")

	bio := "gopher"
	u, err := s.users.UpdateProfile(ctx, alice, UpdateProfileRequest{Bio: &bio})
	if err != nil {
		t.Fatal(err)
	}
	if u.Bio != "gopher" || u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("updated = %+v", u)
	}

	taken := "bob"
	_, err = s.users.UpdateProfile(ctx, alice, UpdateProfileRequest{Username: &taken})
	if f := fieldErrors(t, err); len(f["username"]) == 0 {
		t.Fatalf("fields = %v", f)
	}

	long := strings.Repeat("x", 501)
	_, err = s.users.UpdateProfile(ctx, alice, UpdateProfileRequest{Bio: &long})
	if f := fieldErrors(t, err); len(f["bio"]) == 0 {
		t.Fatalf("fields = %v", f)
	}

	if _, err := s.users.UpdateProfile(ctx, nil, UpdateProfileRequest{}); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("anonymous update: %v", err)
	}
}

func TestListUsersExcludesStaff(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	s.register(t, "alice")
	if _, err := s.auth.CreateAdmin(ctx, RegisterRequest{Username: "root", Password: "secret"}); err != nil {
		t.Fatal(err)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("ListUsers = %+v", users)
	}
}

func TestCreatePost(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	tech := s.category(t, "Tech")

	start := time.Now().UTC().Add(-time.Millisecond)
	p, err := s.blog.CreatePost(ctx, alice, CreatePostRequest{
		Title: "Hello World", Content: "body", Author: bob.ID, Category: tech.ID,
		Tags: []string{" go ", "rust", "go"}, PublishNow: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.AuthorID != alice.ID {
		t.Errorf("author = %s, want the caller", p.AuthorID)
	}
	if p.Slug != "hello-world" {
		t.Errorf("slug = %q", p.Slug)
	}
	if p.PublishedAt == nil || p.PublishedAt.Before(start) || p.PublishedAt.After(time.Now().UTC()) {
		t.Errorf("PublishedAt = %v, start %v", p.PublishedAt, start)
	}
	if len(p.Tags) != 2 {
		t.Errorf("tags = %v", p.Tags)
	}

	draft, err := s.blog.CreatePost(ctx, nil, CreatePostRequest{Title: "Draft", Content: "c", Author: bob.ID, Category: tech.ID})
	if err != nil {
		t.Fatal(err)
	}
	if draft.PublishedAt != nil || draft.AuthorID != bob.ID {
		t.Errorf("anonymous draft = %+v", draft)
	}

	_, err = s.blog.CreatePost(ctx, nil, CreatePostRequest{Title: "x", Content: "y", Category: "missing"})
	f := fieldErrors(t, err)
	if len(f["Author"]) == 0 || len(f["Category"]) == 0 {
		t.Fatalf("fields = %v", f)
	}

	_, err = s.blog.CreatePost(ctx, alice, CreatePostRequest{})
	f = fieldErrors(t, err)
	for _, field := range []string{"Title", "Content", "Category"} {
		if len(f[field]) == 0 {
			t.Errorf("missing error for %s in %v", field, f)
		}
	}
}

func TestUpdatePostRecomputesTagsAndPublishState(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	tech := s.category(t, "Tech")
	life := s.category(t, "Life")

	p, err := s.blog.CreatePost(ctx, alice, CreatePostRequest{
		Title: "t", Content: "c", Category: tech.ID, Tags: []string{"go", "rust"}, PublishNow: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	title := "x"
	updated, err := s.blog.UpdatePost(ctx, alice, p.ID, UpdatePostRequest{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "x" || updated.Content != "c" || updated.CategoryID != tech.ID {
		t.Errorf("partial fields not kept: %+v", updated)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("tags = %v, want cleared", updated.Tags)
	}
	if updated.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want draft", updated.PublishedAt)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt changed")
	}

	updated, err = s.blog.UpdatePost(ctx, alice, p.ID, UpdatePostRequest{Category: &life.ID, Tags: []string{"zig"}, PublishNow: true})
	if err != nil {
		t.Fatal(err)
	}
	if updated.CategoryName != "Life" || len(updated.Tags) != 1 || updated.PublishedAt == nil {
		t.Errorf("second update = %+v", updated)
	}

	missing := "nope"
	_, err = s.blog.UpdatePost(ctx, alice, p.ID, UpdatePostRequest{Category: &missing})
	if f := fieldErrors(t, err); len(f["Category"]) == 0 {
		t.Errorf("fields = %v", f)
	}
}

func TestPostOwnershipPolicies(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	admin, err := s.auth.CreateAdmin(ctx, RegisterRequest{Username: "root", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	tech := s.category(t, "Tech")
	p, _ := s.blog.CreatePost(ctx, alice, CreatePostRequest{Title: "t", Content: "c", Category: tech.ID})

	title := "hijack"
	if _, err := s.blog.UpdatePost(ctx, nil, p.ID, UpdatePostRequest{Title: &title}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("anonymous update: %v", err)
	}
	if _, err := s.blog.UpdatePost(ctx, bob, p.ID, UpdatePostRequest{Title: &title}); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("other user update: %v", err)
	}
	if _, err := s.blog.UpdatePost(ctx, admin, p.ID, UpdatePostRequest{Title: &title}); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("admin update: %v", err)
	}
	if got, _ := s.blog.GetPost(ctx, p.ID); got.Title != "t" {
		t.Fatalf("denied update changed the post: %+v", got)
	}

	if err := s.blog.DeletePost(ctx, bob, p.ID); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("other user delete: %v", err)
	}
	if err := s.blog.DeletePost(ctx, admin, p.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if err := s.blog.DeletePost(ctx, alice, p.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("delete twice: %v", err)
	}

	own, _ := s.blog.CreatePost(ctx, bob, CreatePostRequest{Title: "mine", Content: "c", Category: tech.ID})
	if err := s.blog.DeletePost(ctx, bob, own.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestTaxonomy(t *testing.T) {
	s := newServices(t, false)
	ctx := context.Background()
	alice := s.register(t, "alice")

	tech := s.category(t, "Tech Stuff")
	if tech.Slug != "tech-stuff" {
		t.Errorf("slug = %q", tech.Slug)
	}
	empty := s.category(t, "Empty")
	if _, err := s.taxonomy.CreateCategory(ctx, CreateCategoryRequest{Name: strings.Repeat("x", 31)}); err == nil {
		t.Error("31 character category accepted")
	}

	if _, err := s.blog.CreatePost(ctx, alice, CreatePostRequest{Title: "t", Content: "c", Category: tech.ID}); err != nil {
		t.Fatal(err)
	}
	if err := s.taxonomy.DeleteCategory(ctx, tech.ID); !errors.Is(err, common.ErrIntegrityViolation) {
		t.Errorf("delete used category: %v", err)
	}
	if err := s.taxonomy.DeleteCategory(ctx, empty.ID); err != nil {
		t.Errorf("delete empty category: %v", err)
	}

	if _, err := s.taxonomy.CreateTag(ctx, CreateTagRequest{Name: "go"}); err != nil {
		t.Fatal(err)
	}
	_, err := s.taxonomy.CreateTag(ctx, CreateTagRequest{Name: "go"})
	if f := fieldErrors(t, err); len(f["name"]) == 0 {
		t.Errorf("duplicate tag fields = %v", f)
	}
	tags, _ := s.taxonomy.ListTags(ctx)
	cats, _ := s.taxonomy.ListCategories(ctx)
	if len(tags) != 1 || len(cats) != 1 {
		t.Errorf("tags=%v categories=%v", tags, cats)
	}
}

func TestMakeSlug(t *testing.T) {
	if got := makeSlug("Hello, World!", 50); got != "hello-world" {
		t.Errorf("makeSlug = %q", got)
	}
	if got := makeSlug("aaaa bbbb cccc", 11); got != "aaaa-bbbb" {
		t.Errorf("truncated slug = %q", got)
	}
}
