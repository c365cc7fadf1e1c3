package handler

import (
	"net/http"

	"blog_backend/internal/api/middleware"
	"blog_backend/internal/app/policy"
	"blog_backend/internal/app/query"
	"blog_backend/internal/app/service"
	"blog_backend/internal/common"
	"blog_backend/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

// BlogHandler serves the post routes under /blog.
type BlogHandler struct {
	blogService *service.BlogService
	pager       query.Pager
}

func NewBlogHandler(blogService *service.BlogService, pager query.Pager) *BlogHandler {
	return &BlogHandler{blogService: blogService, pager: pager}
}

func (h *BlogHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create", h.createPost)
	r.Get("/detail/{id}", h.getPost)
	r.Get("/search", h.searchPosts)
	r.Get("/filter", h.filterPosts)
	r.Get("/list", h.listPosts)

	// Ownership is checked once the post is loaded.
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Require(policy.RequireAuthenticated))
		authed.Put("/update/{id}", h.updatePost)
		authed.Delete("/delete/{id}", h.deletePost)
	})
}

func (h *BlogHandler) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	post, err := h.blogService.CreatePost(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, newPostResponse(post))
}

func (h *BlogHandler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogService.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, newPostResponse(post))
}

func (h *BlogHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	post, err := h.blogService.UpdatePost(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, newPostResponse(post))
}

func (h *BlogHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.blogService.DeletePost(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondNoContent(w)
}

func (h *BlogHandler) searchPosts(w http.ResponseWriter, r *http.Request) {
	h.respondWithPosts(w, r, query.Search(r.URL.Query()))
}

func (h *BlogHandler) filterPosts(w http.ResponseWriter, r *http.Request) {
	h.respondWithPosts(w, r, query.Filter(r.URL.Query()))
}

func (h *BlogHandler) respondWithPosts(w http.ResponseWriter, r *http.Request, q repository.PostQuery) {
	posts, _, err := h.blogService.QueryPosts(r.Context(), q)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, newPostResponses(posts))
}

func (h *BlogHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	q, err := h.pager.List(r.URL.Query())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	posts, total, err := h.blogService.QueryPosts(r.Context(), q)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	page := query.NewPage(query.RequestURL(r), total, q.Limit, q.Offset, newPostResponses(posts))
	common.RespondWithJSON(w, http.StatusOK, page)
}
