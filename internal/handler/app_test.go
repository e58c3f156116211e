package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/backoffice/internal/handler"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/router"
	"github.com/suteetoe/backoffice/pkg/config"
	"github.com/suteetoe/backoffice/pkg/database/databasetest"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"gorm.io/gorm"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (s *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://files.test/" + key, nil
}

func (s *fakeStore) PutFile(ctx context.Context, key, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Put(ctx, key, f, 0, contentType)
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type alert struct {
	AccountID   uint
	ProductName string
	Quantity    int
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []alert
}

func (n *fakeNotifier) LowStock(_ context.Context, accountID uint, productName string, quantity int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert{accountID, productName, quantity})
	return nil
}

type testApp struct {
	e         *echo.Echo
	uploadDir string
	db        *gorm.DB
	jwt       *jwtutil.JWTUtil
	store     *fakeStore
	notifier  *fakeNotifier
	sessions  *sessions.CookieStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := databasetest.New(t)
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test", ExpirationHours: 1})
	store := &fakeStore{objects: map[string][]byte{}}
	notifier := &fakeNotifier{}
	sessionStore := router.NewSessionStore(config.SessionConfig{Secret: "test-session-secret", MaxAge: time.Hour}, false)

	uploadDir := t.TempDir()

	h := handler.New(db, jwtUtil, store, notifier, sessionStore, handler.Options{
		ServiceName: "backoffice-test",
		TaxRate:     decimal.RequireFromString("0.10"),
		UploadDir:   uploadDir,
	})
	return &testApp{
		e:         router.New(h, jwtUtil, router.Options{}),
		uploadDir: uploadDir,
		db:        db,
		jwt:       jwtUtil,
		store:     store,
		notifier:  notifier,
		sessions:  sessionStore,
	}
}

func (a *testApp) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.serve(req, token)
}

func (a *testApp) upload(path, token, field, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	part, _ := w.CreateFormFile(field, filename)
	_, _ = part.Write(content)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return a.serve(req, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testApp) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(m).Count(&n).Error)
	return n
}

// signup registers an account and returns its token and id
func (a *testApp) signup(t *testing.T, email, shopName string) (string, uint) {
	t.Helper()
	rec := a.do(http.MethodPost, "/api/signup", "", map[string]string{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"shopname":  shopName,
		"email":     email,
		"password":  "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]interface{})
	return body["access_token"].(string), uint(user["id"].(float64))
}

// registerCustomer registers a buyer and returns its token and id
func (a *testApp) registerCustomer(t *testing.T, email string) (string, uint) {
	t.Helper()
	rec := a.do(http.MethodPost, "/api/customer/register", "", map[string]string{
		"firstname": "Grace",
		"lastname":  "Hopper",
		"email":     email,
		"password":  "buyer-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	customer := body["customer"].(map[string]interface{})
	return body["access_token"].(string), uint(customer["id"].(float64))
}

func (a *testApp) seedProduct(t *testing.T, accountID uint, name string, quantity int, price string) *model.Product {
	t.Helper()
	p := &model.Product{
		ProductName:  name,
		PricePerUnit: decimal.RequireFromString(price),
		Quantity:     quantity,
		ImageURL:     model.PlaceholderImageURL,
		AccountID:    accountID,
	}
	require.NoError(t, a.db.Create(p).Error)
	return p
}

func (a *testApp) product(t *testing.T, id uint) model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, a.db.First(&p, id).Error)
	return p
}

func path(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
