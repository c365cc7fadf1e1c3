package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Response bodies. Each endpoint lists the fields it exposes explicitly;
// domain models are never encoded directly.

type UserSummaryResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profile_pic"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PostResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"Title"`
	Slug           string     `json:"slug"`
	Content        string     `json:"Content"`
	Author         string     `json:"Author"`
	AuthorUsername string     `json:"author_username"`
	Category       string     `json:"Category"`
	CategoryName   string     `json:"category_name"`
	Tags           []string   `json:"tags"`
	CreatedDate    time.Time  `json:"Created_Date"`
	PublishedDate  *time.Time `json:"Published_Date"`
}

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newUserSummary(u *model.User) UserSummaryResponse {
	return UserSummaryResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Bio: u.Bio, ProfilePic: u.ProfilePic}
}

func newPostResponse(p *model.Post) PostResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Slug:           p.Slug,
		Content:        p.Content,
		Author:         p.AuthorID,
		AuthorUsername: p.AuthorUsername,
		Category:       p.CategoryID,
		CategoryName:   p.CategoryName,
		Tags:           tags,
		CreatedDate:    p.CreatedAt,
		PublishedDate:  p.PublishedAt,
	}
}

func newPostResponses(posts []model.Post) []PostResponse {
	out := make([]PostResponse, len(posts))
	for i := range posts {
		out[i] = newPostResponse(&posts[i])
	}
	return out
}

func newCategoryResponse(c *model.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func newTagResponse(t *model.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name}
}

// decodeJSON reads the request body into dst. An empty body decodes as {}.
// It writes the 400 response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithErr(w, fmt.Errorf("%w: invalid request payload: %v", common.ErrBadRequest, err))
		return false
	}
	return true
}
