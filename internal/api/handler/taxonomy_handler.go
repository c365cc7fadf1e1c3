package handler

import (
	"net/http"

	"blog_backend/internal/api/middleware"
	"blog_backend/internal/app/policy"
	"blog_backend/internal/app/service"
	"blog_backend/internal/common"

	"github.com/go-chi/chi/v5"
)

// TaxonomyHandler serves the tag and category routes under /blog.
type TaxonomyHandler struct {
	taxonomyService *service.TaxonomyService
}

func NewTaxonomyHandler(ts *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomyService: ts}
}

func (h *TaxonomyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tag/list", h.listTags)
	r.Get("/category/list", h.listCategories)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Require(policy.RequireAdmin))
		admin.Post("/tag/create", h.createTag)
		admin.Post("/category/create", h.createCategory)
		admin.Delete("/category/delete/{id}", h.deleteCategory)
	})
}

func (h *TaxonomyHandler) createTag(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.taxonomyService.CreateTag(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, newTagResponse(tag))
}

func (h *TaxonomyHandler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.taxonomyService.ListTags(r.Context())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	resp := make([]TagResponse, len(tags))
	for i := range tags {
		resp[i] = newTagResponse(&tags[i])
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *TaxonomyHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.taxonomyService.CreateCategory(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (h *TaxonomyHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.taxonomyService.ListCategories(r.Context())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	resp := make([]CategoryResponse, len(categories))
	for i := range categories {
		resp[i] = newCategoryResponse(&categories[i])
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *TaxonomyHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.taxonomyService.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondNoContent(w)
}
