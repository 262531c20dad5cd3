package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/observability"
)

// fakeUserRepo resolves only by auth UID. GetByID always misses, so any
// handshake that passes must have looked the identity up by its auth UID.
type fakeUserRepo struct {
	byAuthUID map[string]*domain.User
}

func (r *fakeUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *fakeUserRepo) Update(context.Context, *domain.User) error { return nil }

func (r *fakeUserRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByAuthUID(_ context.Context, authUID string) (*domain.User, error) {
	user, ok := r.byAuthUID[authUID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) List(context.Context, int, int) ([]domain.User, error) {
	return nil, nil
}

func newUpgradeApp(t *testing.T, repo *fakeUserRepo) (*fiber.App, *auth.TokenManager, *string) {
	t.Helper()
	tokens := auth.NewTokenManager("upgrade-test-secret", 60)
	registry := NewRegistry()
	emitter := NewEmitter(registry, zap.NewNop(), observability.NewMetrics())
	handler := NewHandler(tokens, repo, registry, emitter, zap.NewNop(), time.Second)

	resolved := new(string)
	app := fiber.New()
	app.Use("/ws", handler.Upgrade)
	app.Get("/ws", func(c *fiber.Ctx) error {
		*resolved, _ = c.Locals(authUIDKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})
	return app, tokens, resolved
}

func upgradeRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	return req
}

func TestUpgradeResolvesIdentityByAuthUID(t *testing.T) {
	user := &domain.User{ID: "u-1", AuthUID: "auth-1", Role: domain.RoleMember}
	repo := &fakeUserRepo{byAuthUID: map[string]*domain.User{user.AuthUID: user}}
	app, tokens, resolved := newUpgradeApp(t, repo)

	token, _, err := tokens.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	resp, err := app.Test(upgradeRequest("/ws?token=" + token))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if *resolved != user.AuthUID {
		t.Fatalf("resolved identity = %q, want %q", *resolved, user.AuthUID)
	}
}

func TestUpgradeAcceptsBearerHeader(t *testing.T) {
	user := &domain.User{ID: "u-1", AuthUID: "auth-1", Role: domain.RoleMember}
	repo := &fakeUserRepo{byAuthUID: map[string]*domain.User{user.AuthUID: user}}
	app, tokens, resolved := newUpgradeApp(t, repo)

	token, _, err := tokens.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := upgradeRequest("/ws")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if *resolved != user.AuthUID {
		t.Fatalf("resolved identity = %q, want %q", *resolved, user.AuthUID)
	}
}

func TestUpgradeRejectsDeletedUser(t *testing.T) {
	app, tokens, resolved := newUpgradeApp(t, &fakeUserRepo{})

	token, _, err := tokens.GenerateToken(&domain.User{ID: "u-9", AuthUID: "auth-9"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	resp, err := app.Test(upgradeRequest("/ws?token=" + token))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatal("handshake passed for a token with no backing user")
	}
	if *resolved != "" {
		t.Fatalf("connection handler reached with identity %q", *resolved)
	}
}

func TestUpgradeRejectsMissingCredential(t *testing.T) {
	app, _, resolved := newUpgradeApp(t, &fakeUserRepo{})

	resp, err := app.Test(upgradeRequest("/ws"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatal("handshake passed without a credential")
	}
	if *resolved != "" {
		t.Fatalf("connection handler reached with identity %q", *resolved)
	}
}

func TestUpgradeRejectsInvalidToken(t *testing.T) {
	app, _, resolved := newUpgradeApp(t, &fakeUserRepo{})

	resp, err := app.Test(upgradeRequest("/ws?token=not-a-jwt"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatal("handshake passed with a garbage token")
	}
	if *resolved != "" {
		t.Fatalf("connection handler reached with identity %q", *resolved)
	}
}
