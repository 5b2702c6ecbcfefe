package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/persistence/middleware"
	"github.com/aretw0/firstaid/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunStateStoreContract(t, mw(memory.NewStore()))
}

func TestHistoryEncryption_Contract(t *testing.T) {
	mw := middleware.NewHistoryEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunHistoryStoreContract(t, mw(memory.NewHistory(0)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"
	original := domain.NewSession(sessionID)
	original.Touch(time.Now())
	original.Emergency = "Quemaduras de Segundo Grado"
	original.Position = domain.Position{NodeID: "quem-q1", Kind: domain.PositionQuestion}
	original.AwaitingAnswer = true

	// 1. Save
	if err := secureStore.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify Underlying Store directly (Should be encrypted)
	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Emergency != "" || stored.Position.NodeID != "" {
		t.Fatalf("Expected flow fields to be hidden, found: %+v", stored)
	}
	if stored.Sealed == "" {
		t.Fatal("Expected sealed payload in envelope")
	}
	if !stored.LastActivity.Equal(original.LastActivity) {
		t.Error("LastActivity should stay readable for idle sweeps")
	}

	// 3. Load via Middleware (Should be decrypted)
	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Emergency != original.Emergency {
		t.Errorf("Expected %q, got %q", original.Emergency, loaded.Emergency)
	}
	if loaded.Status() != domain.StatusAwaitingAnswer {
		t.Errorf("Expected AWAITING_ANSWER, got %s", loaded.Status())
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"
	original := domain.NewSession(sessionID)
	original.Emergency = "Sangrado Nasal"

	// 1. Save with OLD key
	if err := secureStoreOld.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Emergency != "Sangrado Nasal" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again (Should now use the NEW key)
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. Verify we CANNOT load with just OLD key anymore
	if _, err := secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSession(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, "plain", domain.NewSession("plain")); err != nil {
		t.Fatal(err)
	}

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain session to be rejected")
	}
}

func TestHistoryEncryption_HidesContent(t *testing.T) {
	underlying := memory.NewHistory(0)
	secure := middleware.NewHistoryEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	if err := secure.Append(ctx, "s1", domain.Turn{Role: domain.RoleUser, Content: "me corté"}); err != nil {
		t.Fatal(err)
	}
	raw, err := underlying.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 1 || strings.Contains(raw[0].Content, "corté") {
		t.Fatalf("Expected encrypted turn, got %+v", raw)
	}
	if raw[0].Role != domain.RoleUser {
		t.Errorf("Role should stay readable, got %q", raw[0].Role)
	}
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("DecodeKey failed: %v", err)
	}
	if string(got) != string(key) {
		t.Error("DecodeKey changed the key")
	}

	if _, err := middleware.DecodeKey("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short-key"))); err == nil {
		t.Error("Expected error for short key")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
