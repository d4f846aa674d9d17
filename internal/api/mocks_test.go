package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/api/shared"
	"github.com/adornalabs/tryon-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTryOnService implements service.TryOnService with overridable funcs.
type fakeTryOnService struct {
	SubmitFn   func(ctx context.Context, userID uuid.UUID, params domain.NewTryOnParams) (*domain.TryOn, error)
	GetFn      func(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error)
	ListMineFn func(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error)
	RetryFn    func(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error)
	DeleteFn   func(ctx context.Context, userID, tryOnID uuid.UUID) error
}

func (s *fakeTryOnService) Submit(ctx context.Context, userID uuid.UUID, params domain.NewTryOnParams) (*domain.TryOn, error) {
	return s.SubmitFn(ctx, userID, params)
}

func (s *fakeTryOnService) Get(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error) {
	return s.GetFn(ctx, userID, tryOnID)
}

func (s *fakeTryOnService) ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error) {
	return s.ListMineFn(ctx, userID, limit)
}

func (s *fakeTryOnService) Retry(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error) {
	return s.RetryFn(ctx, userID, tryOnID)
}

func (s *fakeTryOnService) Delete(ctx context.Context, userID, tryOnID uuid.UUID) error {
	return s.DeleteFn(ctx, userID, tryOnID)
}

// fakeUserService implements service.UserService with overridable funcs.
type fakeUserService struct {
	RegisterFn     func(ctx context.Context, email, password string) (*domain.User, error)
	AuthenticateFn func(ctx context.Context, email, password string) (*domain.User, error)
}

func (s *fakeUserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	return s.RegisterFn(ctx, email, password)
}

func (s *fakeUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	return s.AuthenticateFn(ctx, email, password)
}

// fakeBlobStore resolves every reference to a predictable URL.
type fakeBlobStore struct {
	PutFn func(ctx context.Context, data []byte, contentType string) (string, error)
	URLFn func(ctx context.Context, ref string) (string, error)
}

func (b *fakeBlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if b.PutFn != nil {
		return b.PutFn(ctx, data, contentType)
	}
	return "images/" + uuid.NewString() + ".png", nil
}

func (b *fakeBlobStore) URL(ctx context.Context, ref string) (string, error) {
	if b.URLFn != nil {
		return b.URLFn(ctx, ref)
	}
	return "https://blobs.test/" + ref, nil
}

// authedRequest builds a request whose context carries the given user ID,
// as the auth middleware would have left it.
func authedRequest(method, target string, body io.Reader, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func pendingTryOn(userID uuid.UUID) *domain.TryOn {
	tryOn, err := domain.NewTryOn(userID, domain.NewTryOnParams{
		Kind:            domain.KindPromptOnly,
		JewelryImageRef: "images/necklace.png",
		Prompt:          "gold necklace on a model",
	})
	if err != nil {
		panic(err)
	}
	return tryOn
}

func jsonRequest(method, target, body string, userID uuid.UUID) *http.Request {
	r := authedRequest(method, target, strings.NewReader(body), userID)
	r.Header.Set("Content-Type", "application/json")
	return r
}
