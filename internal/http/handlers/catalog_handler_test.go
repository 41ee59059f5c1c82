package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

func TestListTags_ETagRoundTrip(t *testing.T) {
	env := newEnv(t)
	lunch := env.tag(t, "lunch", "#00FF00")
	env.tag(t, "dinner", "#0000FF")

	w := env.do(t, http.MethodGet, "/tags/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list tags -> %d", w.Code)
	}
	var tags []domain.Tag
	decode(t, w, &tags)
	if len(tags) != 2 {
		t.Fatalf("tags = %+v", tags)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	if w := env.do(t, http.MethodGet, "/tags/", "", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("revalidation -> %d; want 304", w.Code)
	}

	env.tag(t, "breakfast", "#FF0000")
	if w := env.do(t, http.MethodGet, "/tags/", "", nil, "If-None-Match", etag); w.Code != http.StatusOK {
		t.Fatalf("stale ETag should yield 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/tags/"+strconv.Itoa(int(lunch.ID))+"/", "", nil)
	var one domain.Tag
	decode(t, w, &one)
	if one.Slug != "lunch" || one.Color != "#00FF00" {
		t.Fatalf("tag = %+v", one)
	}
	if w := env.do(t, http.MethodGet, "/tags/999/", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing tag -> %d", w.Code)
	}
}

func TestListIngredients_PrefixSearch(t *testing.T) {
	env := newEnv(t)
	salt := env.ingredient(t, "Salt", "g")
	env.ingredient(t, "Sugar", "g")
	env.ingredient(t, "Eggs", "pcs")
	env.ingredient(t, "Сыр", "г")

	search := func(q string) []map[string]any {
		t.Helper()
		w := env.do(t, http.MethodGet, "/ingredients/?name="+q, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("search %q -> %d", q, w.Code)
		}
		var out []map[string]any
		decode(t, w, &out)
		return out
	}

	if got := search("s"); len(got) != 2 {
		t.Fatalf("prefix s = %v", got)
	}
	if got := search("%D1%81%D1%8B"); len(got) != 1 || got[0]["name"] != "Сыр" {
		t.Fatalf("cyrillic prefix = %v", got)
	}
	if got := search(""); len(got) != 4 {
		t.Fatalf("no filter = %v", got)
	}
	for _, item := range search("salt") {
		if _, leaked := item["SearchName"]; leaked {
			t.Fatalf("search key leaked: %v", item)
		}
	}

	w := env.do(t, http.MethodGet, "/ingredients/"+strconv.Itoa(int(salt.ID))+"/", "", nil)
	var one domain.Ingredient
	decode(t, w, &one)
	if one.Name != "Salt" || one.MeasurementUnit != "g" {
		t.Fatalf("ingredient = %+v", one)
	}
	if w := env.do(t, http.MethodGet, "/ingredients/999/", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing ingredient -> %d", w.Code)
	}
}
