// Catalog HTTP handlers.
//
// Tags and ingredients are read-only reference data loaded by the CLI.
// Lists are unpaginated and carry a weak ETag derived from catalog stats
// so clients can revalidate with If-None-Match.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// catalogETag sets a weak ETag for the named list and reports whether the
// client already holds it (the 304 has been written in that case). Stats
// failures skip the ETag and let the request proceed.
func (h *Handlers) catalogETag(c *gin.Context, kind string) bool {
	st, err := h.svc.Catalog.Stats(c.Request.Context())
	if err != nil {
		return false
	}
	var etag string
	switch kind {
	case "tags":
		etag = fmt.Sprintf(`W/"tags:%d:%d"`, st.Tags, st.MaxTagID)
	default:
		etag = fmt.Sprintf(`W/"ingredients:%d:%d"`, st.Ingredients, st.MaxIngredientID)
	}
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// ListTags godoc
// @ID          listTags
// @Summary     List tags
// @Tags        Tags
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {array}   domain.Tag
// @Header      200  {string}  ETag  "Weak ETag for the tag list"
// @Success     304  {string}  string  "Not Modified"
// @Router      /tags/ [get]
func (h *Handlers) ListTags(c *gin.Context) {
	if h.catalogETag(c, "tags") {
		return
	}
	tags, err := h.svc.Catalog.ListTags(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, tags)
}

// GetTag godoc
// @ID          getTag
// @Summary     Get a tag
// @Tags        Tags
// @Produce     json
// @Param       id   path      int  true  "Tag ID"
// @Success     200  {object}  domain.Tag
// @Failure     404  {object}  handlers.ErrorResponse  "Tag not found"
// @Router      /tags/{id}/ [get]
func (h *Handlers) GetTag(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	t, err := h.svc.Catalog.GetTag(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// ListIngredients godoc
// @ID          listIngredients
// @Summary     List ingredients
// @Description Optional case-insensitive prefix search on the name.
// @Tags        Ingredients
// @Produce     json
// @Param       name           query   string  false  "Name prefix"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {array}   domain.Ingredient
// @Header      200  {string}  ETag  "Weak ETag for the ingredient catalog"
// @Success     304  {string}  string  "Not Modified"
// @Router      /ingredients/ [get]
func (h *Handlers) ListIngredients(c *gin.Context) {
	if h.catalogETag(c, "ingredients") {
		return
	}
	items, err := h.svc.Catalog.SearchIngredients(c.Request.Context(), strings.TrimSpace(c.Query("name")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetIngredient godoc
// @ID          getIngredient
// @Summary     Get an ingredient
// @Tags        Ingredients
// @Produce     json
// @Param       id   path      int  true  "Ingredient ID"
// @Success     200  {object}  domain.Ingredient
// @Failure     404  {object}  handlers.ErrorResponse  "Ingredient not found"
// @Router      /ingredients/{id}/ [get]
func (h *Handlers) GetIngredient(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	in, err := h.svc.Catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, in)
}
