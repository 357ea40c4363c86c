package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"noticeboard/config"
	"noticeboard/internal/cache"
	"noticeboard/internal/repository"
	"noticeboard/pkg/blobstore"
	"noticeboard/pkg/database"
	"noticeboard/pkg/logger"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type detailBody struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	ViewCount int64  `json:"viewCount"`
	Files     []struct {
		ID               int64  `json:"id"`
		OriginalFilename string `json:"originalFilename"`
		Size             int64  `json:"size"`
	} `json:"files"`
}

type pageBody struct {
	Items []struct {
		ID             int64  `json:"id"`
		Title          string `json:"title"`
		HasAttachments bool   `json:"hasAttachments"`
	} `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int64 `json:"totalPages"`
}

type part struct {
	name, filename, contentType, body string
}

func newTestRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	db, err := database.NewConnection(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "notices.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	log := logger.NewNop()
	blobs, err := blobstore.NewLocalStore(filepath.Join(dir, "uploads"), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	cfg := &config.Config{LogLevel: "debug", CacheTTL: time.Minute, MaxUploadSize: maxUpload}
	return SetupRouter(cfg, log, db, cache.NewMemoryCache(cfg.CacheTTL), blobs)
}

func multipartBody(t *testing.T, parts ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		if p.filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.name, p.filename))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, p.name))
		}
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		pw.Write([]byte(p.body))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, r http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

const outageRequest = `{"title":"Outage window","content":"Scheduled maintenance","startDate":"2024-01-01T00:00:00","endDate":"2024-01-02T00:00:00"}`

func TestNoticeAPI_Lifecycle(t *testing.T) {
	r := newTestRouter(t, 1<<20)

	body, ct := multipartBody(t,
		part{name: "request", contentType: "application/json", body: outageRequest},
		part{name: "files", filename: "notes.txt", contentType: "text/plain", body: "0123456789"},
	)
	rec := do(t, r, http.MethodPost, "/api/v1/notices", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	var created detailBody
	if env := decode(t, rec, &created); env.Code != http.StatusCreated {
		t.Errorf("envelope code = %d", env.Code)
	}
	if len(created.Files) != 1 || created.Files[0].Size != 10 {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/notices?filter=outage&searchType=TITLE&sort=createdAt,desc", nil, "")
	var list pageBody
	decode(t, rec, &list)
	if rec.Code != http.StatusOK || list.Total != 1 || !list.Items[0].HasAttachments || list.Page != 1 || list.Size != 10 {
		t.Fatalf("list status %d body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Scheduled maintenance") {
		t.Errorf("list response leaked notice content")
	}

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/%d", created.ID), nil, "")
	var detail detailBody
	decode(t, rec, &detail)
	if rec.Code != http.StatusOK || detail.ViewCount != 1 || len(detail.Files) != 1 {
		t.Fatalf("detail status %d body %s", rec.Code, rec.Body.String())
	}

	fileID := detail.Files[0].ID
	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/files/%d", fileID), nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("download status %d body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="notes.txt"; filename*=UTF-8''notes.txt` {
		t.Errorf("content disposition = %q", got)
	}

	update := fmt.Sprintf(`{"title":"Outage window","content":"Extended","startDate":"2024-01-01T00:00:00","endDate":"2024-01-03T00:00:00","deleteFileIds":[%d]}`, fileID)
	body, ct = multipartBody(t, part{name: "request", body: update})
	rec = do(t, r, http.MethodPut, fmt.Sprintf("/api/v1/notices/%d", created.ID), body, ct)
	var updated detailBody
	decode(t, rec, &updated)
	if rec.Code != http.StatusOK || len(updated.Files) != 0 {
		t.Fatalf("update status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/files/%d", fileID), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("removed file download status = %d", rec.Code)
	}

	rec = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/notices/%d", created.ID), nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/%d", created.ID), nil, "")
	if env := decode(t, rec, nil); rec.Code != http.StatusNotFound || env.Code != http.StatusNotFound || env.Msg == "" {
		t.Errorf("deleted detail status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestNoticeAPI_CreateFromJSONBody(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	rec := do(t, r, http.MethodPost, "/api/v1/notices", strings.NewReader(outageRequest), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var created detailBody
	decode(t, rec, &created)
	if created.Title != "Outage window" || len(created.Files) != 0 {
		t.Errorf("created = %+v", created)
	}
}

func TestNoticeAPI_DownloadNonASCIIName(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	body, ct := multipartBody(t,
		part{name: "request", body: outageRequest},
		part{name: "files", filename: "공지.txt", body: "hello"},
	)
	rec := do(t, r, http.MethodPost, "/api/v1/notices", body, ct)
	var created detailBody
	decode(t, rec, &created)
	if rec.Code != http.StatusCreated || len(created.Files) != 1 {
		t.Fatalf("create status %d body %s", rec.Code, rec.Body.String())
	}
	if created.Files[0].OriginalFilename != "공지.txt" {
		t.Errorf("original filename = %q", created.Files[0].OriginalFilename)
	}

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/files/%d", created.Files[0].ID), nil, "")
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "filename*=UTF-8''%EA%B3%B5%EC%A7%80.txt") {
		t.Errorf("content disposition = %q", got)
	}
}

func TestNoticeAPI_Errors(t *testing.T) {
	r := newTestRouter(t, 1024)

	invalid, invalidCT := multipartBody(t, part{name: "request", body: `{"title":" ","content":"x","startDate":"2024-01-01T00:00:00","endDate":"2024-01-02T00:00:00"}`})
	reversed, reversedCT := multipartBody(t, part{name: "request", body: `{"title":"t","content":"x","startDate":"2024-01-02T00:00:00","endDate":"2024-01-01T00:00:00"}`})
	missing, missingCT := multipartBody(t, part{name: "files", filename: "a.txt", body: "a"})
	tooLarge, tooLargeCT := multipartBody(t,
		part{name: "request", body: outageRequest},
		part{name: "files", filename: "big.bin", body: strings.Repeat("x", 4096)},
	)

	cases := []struct {
		name        string
		method      string
		target      string
		body        io.Reader
		contentType string
		want        int
	}{
		{"blank title", http.MethodPost, "/api/v1/notices", invalid, invalidCT, http.StatusBadRequest},
		{"reversed window", http.MethodPost, "/api/v1/notices", reversed, reversedCT, http.StatusBadRequest},
		{"missing request part", http.MethodPost, "/api/v1/notices", missing, missingCT, http.StatusBadRequest},
		{"body too large", http.MethodPost, "/api/v1/notices", tooLarge, tooLargeCT, http.StatusRequestEntityTooLarge},
		{"bad id", http.MethodGet, "/api/v1/notices/abc", nil, "", http.StatusBadRequest},
		{"unknown notice", http.MethodGet, "/api/v1/notices/999", nil, "", http.StatusNotFound},
		{"unknown file", http.MethodGet, "/api/v1/notices/files/999", nil, "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/v1/notices/999", nil, "", http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/v1/notices?startDate=2024/01/01", nil, "", http.StatusBadRequest},
		{"bad sort field", http.MethodGet, "/api/v1/notices?sort=password,asc", nil, "", http.StatusBadRequest},
		{"bad search type", http.MethodGet, "/api/v1/notices?filter=x&searchType=BODY", nil, "", http.StatusBadRequest},
		{"reversed range", http.MethodGet, "/api/v1/notices?startDate=2024-02-01&endDate=2024-01-01", nil, "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, tc.method, tc.target, tc.body, tc.contentType)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.want, rec.Body.String())
			}
			env := decode(t, rec, nil)
			if env.Code != tc.want || env.Msg == "" {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, 0)
	rec := do(t, r, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}
