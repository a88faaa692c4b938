package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"comparador/internal/database"
	"comparador/internal/handlers"
	"comparador/internal/middleware"
	"comparador/internal/models"
	"comparador/internal/repositories"
	"comparador/internal/security"
	"comparador/internal/services"
	"comparador/internal/sessions"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAdmin = "root"

type testApp struct {
	app      *fiber.App
	products repositories.ProductRepository
}

// setupApp builds the full API over a temp-file sqlite database and in-memory sessions.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.db")
	db, err := database.OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewGORMStore(db)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	authz := services.NewAuthorizer(testAdmin)
	state := sessions.NewMemoryStore(time.Hour)
	productRepo := repositories.NewGORMProductRepository(db)

	authService := services.NewAuthService(store, hasher, authz, nil, log)
	sessionService := services.NewSessionService(state, authService)
	tokenService := services.NewTokenService(store, hasher, time.Hour, nil, log)

	h := handlers.Handlers{
		Auth:    handlers.NewAuthHandler(authService, sessionService, tokenService, security.NewRememberMe("test-secret", time.Hour), true, log),
		Cart:    handlers.NewCartHandler(services.NewCartService(state, productRepo)),
		Product: handlers.NewProductHandler(services.NewProductService(productRepo)),
		Chat:    handlers.NewChatHandler(services.NewChatService(repositories.NewGORMChatRepository(db)), time.UTC),
		Admin:   handlers.NewAdminHandler(services.NewSnapshotService(db, path, authz)),
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	handlers.SetupRoutes(app, middleware.NewSessionStore(time.Hour, nil), sessionService, h)
	return &testApp{app: app, products: productRepo}
}

// client replays the cookies the server sets, like a browser would.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a.app, cookies: map[string]string{}}
}

func (c *client) do(req *http.Request) (*http.Response, map[string]any) {
	c.t.Helper()
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	return resp, body
}

func (c *client) send(method, path string, payload any) (*http.Response, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *client) register(username, password, email string) {
	c.t.Helper()
	resp, _ := c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username, "password": password, "email": email,
	})
	require.Equal(c.t, fiber.StatusCreated, resp.StatusCode)
}

func (c *client) login(username, password string) {
	c.t.Helper()
	resp, _ := c.send(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": username, "password": password,
	})
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode)
}

func (a *testApp) seedProduct(t *testing.T, name string, price float64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Brand: "Marca", Price: price, Place: "Coto"}
	require.NoError(t, a.products.Create(context.Background(), p))
	return p
}

func TestHealth(t *testing.T) {
	a := setupApp(t)
	resp, body := a.client(t).send(http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)

	resp, body := c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "testuser", "email": "test@example.com", "password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "testuser", user["username"])
	assert.NotContains(t, user, "password_hash")

	// Duplicate username
	resp, body = c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "testuser", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Registration failed", body["message"])

	// Validation
	resp, body = c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "errors")

	resp, _ = c.send(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = c.send(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "testuser", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	_, unknown := c.send(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, body, unknown)

	c.login("testuser", "password123")
	resp, body = c.send(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, "member", body["role"])

	resp, _ = c.send(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = c.send(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRejectsPasswordOverByteLimit(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)

	// 40 runes fit a rune count of 72 but take 80 bytes.
	resp, body := c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ana", "email": "ana@example.com", "password": strings.Repeat("ñ", 40),
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	fields, ok := body["errors"].(map[string]any)
	require.True(t, ok, "expected field errors, got %v", body)
	assert.Contains(t, fields, "Password")

	resp, _ = c.send(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ana", "email": "ana@example.com", "password": strings.Repeat("ñ", 36),
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestSessionIDIsServerChosen(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.cookies[middleware.SessionCookie] = "attacker-chosen"

	c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.NotEqual(t, "attacker-chosen", c.cookies[middleware.SessionCookie])
	assert.NotEmpty(t, c.cookies[middleware.SessionCookie])
}

func TestLoginRotatesSessionAndKeepsCart(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.register("ana", "password1", "a@x.com")
	p := a.seedProduct(t, "Yerba", 100)

	resp, _ := c.send(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": p.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	anonymous := c.cookies[middleware.SessionCookie]

	c.login("ana", "password1")
	assert.NotEqual(t, anonymous, c.cookies[middleware.SessionCookie])

	_, body := c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.Len(t, body["items"], 1)

	// The old id no longer carries anything.
	stale := a.client(t)
	stale.cookies[middleware.SessionCookie] = anonymous
	resp, _ = stale.send(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCart(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	p := a.seedProduct(t, "Yerba", 1234.5)

	_, body := c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, body["items"])
	assert.EqualValues(t, 0, body["total"])

	for i := 0; i < 2; i++ {
		resp, _ := c.send(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": p.ID})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	_, body = c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.Len(t, body["items"], 2)
	assert.InDelta(t, 2469.0, body["total"], 1e-9)
	assert.Equal(t, "$2.469,00", body["total_display"])

	resp, _ := c.send(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "missing"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = c.send(http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	_, body = c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, body["items"])

	// Another browser has its own cart.
	_, body = a.client(t).send(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, body["items"])
}

func TestLogoutClearsCart(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.register("ana", "password1", "a@x.com")
	p := a.seedProduct(t, "Yerba", 10)

	c.login("ana", "password1")
	c.send(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": p.ID})
	c.send(http.MethodPost, "/api/v1/auth/logout", nil)
	c.login("ana", "password1")

	_, body := c.send(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, body["items"])
}

func TestPasswordReset(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.register("ana", "password1", "a@x.com")

	resp, unknown := c.send(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.NotContains(t, unknown, "token")

	resp, body := c.send(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, unknown["message"], body["message"])
	token := body["token"].(string)

	resp, _ = c.send(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"token": token, "password": "password3"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = c.send(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"token": token, "password": "password4"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password reset failed", body["message"])

	c.login("ana", "password3")
}

func TestRememberMeOnlyPrefills(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.register("ana", "password1", "a@x.com")

	resp, _ := c.send(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": "ana", "password": "password1", "remember": true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	marker := c.cookies["remember_me"]
	require.NotEmpty(t, marker)

	fresh := a.client(t)
	fresh.cookies["remember_me"] = marker
	_, body := fresh.send(http.MethodGet, "/api/v1/auth/login", nil)
	assert.Equal(t, "ana", body["username"])
	resp, _ = fresh.send(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	c.send(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.NotContains(t, c.cookies, "remember_me")
}

func TestProducts(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)
	c.register("ana", "password1", "a@x.com")

	payload := map[string]any{"name": "Yerba", "brand": "Taragui", "price": 1500.5, "place": "Coto"}
	resp, _ := c.send(http.MethodPost, "/api/v1/products", payload)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	c.login("ana", "password1")
	resp, body := c.send(http.MethodPost, "/api/v1/products", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "$1.500,50", body["price_display"])
	id := body["id"].(string)

	resp, body = c.send(http.MethodPost, "/api/v1/products", map[string]any{"name": "Cafe", "brand": "x", "place": "y"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "Price")

	resp, _ = c.send(http.MethodPost, "/api/v1/products", map[string]any{"name": "Cafe", "brand": "x", "price": -1, "place": "y"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=Tara", nil)
	resp, _ = c.do(req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload["price"] = 2000
	resp, body = c.send(http.MethodPut, "/api/v1/products/"+id, payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2000, body["price"])

	resp, _ = c.send(http.MethodDelete, "/api/v1/products/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = c.send(http.MethodGet, "/api/v1/products/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChat(t *testing.T) {
	a := setupApp(t)
	c := a.client(t)

	resp, _ := c.send(http.MethodPost, "/api/v1/chat", map[string]string{"message": "hola"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := c.send(http.MethodPost, "/api/v1/chat", map[string]string{"username": "guest", "message": "hola"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "guest", body["username"])

	c.register("ana", "password1", "a@x.com")
	c.login("ana", "password1")
	resp, body = c.send(http.MethodPost, "/api/v1/chat", map[string]string{"message": "buenas"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ana", body["username"])
}

func uploadSnapshot(t *testing.T, c *client, blob []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "database.db")
	require.NoError(t, err)
	_, err = part.Write(blob)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func TestAdminSnapshot(t *testing.T) {
	a := setupApp(t)
	anon := a.client(t)
	resp, _ := anon.send(http.MethodGet, "/api/v1/admin/snapshot", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	member := a.client(t)
	member.register("ana", "password1", "a@x.com")
	member.login("ana", "password1")
	resp, _ = member.send(http.MethodGet, "/api/v1/admin/snapshot", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = uploadSnapshot(t, member, []byte("junk"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin := a.client(t)
	admin.register(testAdmin, "password1", "root@x.com")
	admin.login(testAdmin, "password1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/snapshot", nil)
	for name, value := range admin.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "database.db")
	blob, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(blob, []byte("SQLite format 3\x00")))

	resp, body := uploadSnapshot(t, admin, []byte("not a database"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid database file", body["message"])

	resp, _ = uploadSnapshot(t, admin, blob)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = admin.send(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
