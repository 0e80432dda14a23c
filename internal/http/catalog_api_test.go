package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"tiendaza/internal/catalog"
	"tiendaza/internal/domain"
)

func TestCatalogAPI_ErrorThenRetry(t *testing.T) {
	repo := &flakyRepo{Repository: localRepo(t), broken: true}
	cl := &client{t: t, app: newTestApp(t, testConfig(), repo)}

	st := cl.settledState()
	if st.Status != catalog.StatusError || st.Message != "Network error" {
		t.Fatalf("want Error(Network error), got %+v", st)
	}

	repo.heal()
	if code := cl.json("POST", "/api/v1/catalog/refresh", nil, &st); code != 200 {
		t.Fatalf("refresh: want 200, got %d", code)
	}
	if st.Status != catalog.StatusLoaded || len(st.Listings) != 3 {
		t.Fatalf("want Loaded(3), got %+v", st)
	}
}

func TestCatalogAPI_Search(t *testing.T) {
	cl := &client{t: t, app: newTestApp(t, testConfig(), localRepo(t))}
	cl.settledState()

	var st catalog.State
	cl.json("GET", "/api/v1/catalog/search?q=", nil, &st)
	if st.Status != catalog.StatusLoaded || len(st.Listings) != 3 {
		t.Fatalf("empty query: want full set, got %+v", st)
	}

	cl.json("GET", "/api/v1/catalog/search?q=zzz", nil, &st)
	if st.Status != catalog.StatusLoaded || len(st.Listings) != 0 {
		t.Fatalf("no matches: want Loaded([]), got %+v", st)
	}

	if code := cl.json("GET", "/api/v1/catalog/search?q=%3Cscript%3E", nil, nil); code != 400 {
		t.Fatalf("bad query: want 400, got %d", code)
	}
	if code := cl.json("GET", "/api/v1/catalog/search", nil, nil); code != 400 {
		t.Fatalf("missing q: want 400, got %d", code)
	}
}

func TestCatalogAPI_Detail(t *testing.T) {
	cl := &client{t: t, app: newTestApp(t, testConfig(), localRepo(t))}

	var l domain.Listing
	if code := cl.json("GET", "/api/v1/listings/2", nil, &l); code != 200 {
		t.Fatalf("want 200, got %d", code)
	}
	if l.ID != 2 || l.Price != 899 {
		t.Fatalf("unexpected listing %+v", l)
	}
	if code := cl.json("GET", "/api/v1/listings/999", nil, nil); code != 404 {
		t.Fatalf("want 404, got %d", code)
	}

	resp := cl.do("GET", "/api/v1/listings/1/image", nil, "")
	if resp.StatusCode != 302 || !strings.HasPrefix(resp.Header.Get("Location"), "https://") {
		t.Fatalf("hosted image should redirect, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func multipartListing(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(image)
	}
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func TestPublishAPI(t *testing.T) {
	cl := &client{t: t, app: newTestApp(t, testConfig(), localRepo(t))}
	cl.settledState()
	png := []byte("\x89PNG\r\n\x1a\n-not-really-a-png")

	body, ct := multipartListing(t, map[string]string{"title": "Silla", "description": "Roble", "price": "4500"}, png)
	resp := cl.do("POST", "/api/v1/listings", body, ct)
	if resp.StatusCode != 201 {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("publish: want 201, got %d %s", resp.StatusCode, b)
	}

	var st catalog.State
	cl.json("GET", "/api/v1/catalog", nil, &st)
	if st.Status != catalog.StatusLoaded || len(st.Listings) != 4 {
		t.Fatalf("publish should refresh catalog, got %+v", st)
	}
	created := st.Listings[3]
	if created.Title != "Silla" || created.Price != 4500 {
		t.Fatalf("unexpected listing %+v", created)
	}

	img := cl.do("GET", "/api/v1/listings/4/image", nil, "")
	got, _ := io.ReadAll(img.Body)
	if img.StatusCode != 200 || img.Header.Get("Content-Type") != "image/png" || !bytes.Equal(got, png) {
		t.Fatalf("inline image: %d %q %q", img.StatusCode, img.Header.Get("Content-Type"), got)
	}

	cases := []struct {
		name   string
		fields map[string]string
		image  []byte
	}{
		{"no title", map[string]string{"title": " ", "price": "1"}, png},
		{"bad price", map[string]string{"title": "x", "price": "-3"}, png},
		{"not an image", map[string]string{"title": "x", "price": "3"}, []byte("plain text")},
		{"no image", map[string]string{"title": "x", "price": "3"}, nil},
	}
	for _, tc := range cases {
		body, ct := multipartListing(t, tc.fields, tc.image)
		if resp := cl.do("POST", "/api/v1/listings", body, ct); resp.StatusCode != 400 {
			t.Fatalf("%s: want 400, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestListingAPI_EditAndWithdraw(t *testing.T) {
	cl := &client{t: t, app: newTestApp(t, testConfig(), localRepo(t))}
	cl.settledState()

	var l domain.Listing
	if code := cl.json("PUT", "/api/v1/listings/2", map[string]any{"titulo": "Lampara LED", "precio": 750}, &l); code != 200 {
		t.Fatalf("edit: want 200, got %d", code)
	}
	if l.ID != 2 || l.Title != "Lampara LED" || l.Price != 750 || l.Description != "LED regulable, poco uso" {
		t.Fatalf("edit should merge onto the current listing, got %+v", l)
	}

	var st catalog.State
	cl.json("GET", "/api/v1/catalog", nil, &st)
	if st.Status != catalog.StatusLoaded || st.Listings[1].Title != "Lampara LED" {
		t.Fatalf("edit should refresh the catalog, got %+v", st)
	}

	if code := cl.json("PUT", "/api/v1/listings/2", map[string]any{"titulo": "  "}, nil); code != 400 {
		t.Fatalf("blank title: want 400, got %d", code)
	}
	if code := cl.json("PUT", "/api/v1/listings/2", map[string]any{"precio": -1}, nil); code != 400 {
		t.Fatalf("negative price: want 400, got %d", code)
	}
	if code := cl.json("PUT", "/api/v1/listings/999", map[string]any{"precio": 1}, nil); code != 404 {
		t.Fatalf("unknown listing: want 404, got %d", code)
	}

	if resp := cl.do("DELETE", "/api/v1/listings/3", nil, ""); resp.StatusCode != 204 {
		t.Fatalf("withdraw: want 204, got %d", resp.StatusCode)
	}
	cl.json("GET", "/api/v1/catalog", nil, &st)
	if len(st.Listings) != 2 {
		t.Fatalf("withdraw should refresh the catalog, got %+v", st)
	}
	if code := cl.json("GET", "/api/v1/listings/3", nil, nil); code != 404 {
		t.Fatalf("withdrawn listing: want 404, got %d", code)
	}
}
