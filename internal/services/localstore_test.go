package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/robolab-backend/internal/models"
)

func newTestLocalWithRedis(t *testing.T) (*LocalStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLocalStore(rdb, models.DefaultAdminEmail, "ralab"), mr
}

func TestLoadServesDefaultDatasetWhenEmpty(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	data := local.Load(ctx)
	if len(data.Users) != 1 || data.Users[0].Email != models.DefaultAdminEmail {
		t.Fatalf("fresh store must serve the seeded admin, got %v", data.Users)
	}
	if len(data.Components) != 1 || data.Components[0].Name != "Arduino Uno R3" {
		t.Fatalf("fresh store must serve the starter inventory, got %v", data.Components)
	}
}

func TestLoadDiscardsCorruptSnapshot(t *testing.T) {
	local, mr := newTestLocalWithRedis(t)
	ctx := context.Background()

	mr.Set(SystemDataKey, "{definitely not json")

	data := local.Load(ctx)
	if len(data.Users) != 1 || data.Users[0].ID != "admin-1" {
		t.Fatal("a corrupt snapshot must be replaced by the default dataset")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	data := local.Load(ctx)
	data.Components = append(data.Components, models.Component{ID: "c2", Name: "HC-SR04", TotalQuantity: 4, AvailableQuantity: 4})
	if err := local.Save(ctx, data); err != nil {
		t.Fatal(err)
	}

	got := local.Load(ctx)
	if len(got.Components) != 2 || got.Components[1].ID != "c2" {
		t.Fatalf("expected the saved snapshot back, got %v", got.Components)
	}
}

func TestUpsertUserReplacesByID(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	local.UpsertUser(ctx, models.User{ID: "u1", Name: "Alan", Email: "alan@example.com"})
	local.UpsertUser(ctx, models.User{ID: "u1", Name: "Alan Turing", Email: "alan@example.com"})

	data := local.Load(ctx)
	count := 0
	for _, u := range data.Users {
		if u.ID == "u1" {
			count++
			if u.Name != "Alan Turing" {
				t.Fatalf("upsert must replace in place, got %q", u.Name)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one u1 record, got %d", count)
	}
}

func TestDeleteComponent(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	if err := local.DeleteComponent(ctx, "component-1"); err != nil {
		t.Fatal(err)
	}
	if len(local.Load(ctx).Components) != 0 {
		t.Fatal("component should be gone")
	}
}

func TestMarkNotificationRead(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	local.UpsertNotification(ctx, models.Notification{ID: "n1", UserID: "u1", Title: "Request approved"})
	local.MarkNotificationRead(ctx, "n1")

	for _, n := range local.Load(ctx).Notifications {
		if n.ID == "n1" && !n.Read {
			t.Fatal("notification should be marked read")
		}
	}
}

func TestCredentialSetAndVerify(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	if err := local.SetCredential(ctx, "amy@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if !local.VerifyCredential(ctx, "amy@example.com", "secret") {
		t.Fatal("correct password must verify")
	}
	if local.VerifyCredential(ctx, "amy@example.com", "wrong") {
		t.Fatal("wrong password must not verify")
	}
	if local.VerifyCredential(ctx, "nobody@example.com", "secret") {
		t.Fatal("unknown account must not verify")
	}
}

func TestCredentialStoredAsHash(t *testing.T) {
	local, mr := newTestLocalWithRedis(t)
	ctx := context.Background()

	local.SetCredential(ctx, "amy@example.com", "secret")

	raw, err := mr.Get(CredentialsKey)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(raw, "secret") {
		t.Fatal("plaintext password must never reach Redis")
	}
}

func TestAdminCredentialBootstrap(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	// First run: no credential map exists, yet the default admin password works.
	if !local.VerifyCredential(ctx, models.DefaultAdminEmail, "ralab") {
		t.Fatal("default admin credential should be provisioned on first verify")
	}

	// A password change replaces the bootstrap credential for good.
	if err := local.SetCredential(ctx, models.DefaultAdminEmail, "new-password"); err != nil {
		t.Fatal(err)
	}
	if local.VerifyCredential(ctx, models.DefaultAdminEmail, "ralab") {
		t.Fatal("old default must stop working after a password change")
	}
	if !local.VerifyCredential(ctx, models.DefaultAdminEmail, "new-password") {
		t.Fatal("new password must verify")
	}
}

func TestLastSyncRoundTrip(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	if _, ok := local.LastSync(ctx); ok {
		t.Fatal("no sync stamp expected on a fresh store")
	}

	stamp := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	local.SetLastSync(ctx, stamp)

	got, ok := local.LastSync(ctx)
	if !ok || !got.Equal(stamp) {
		t.Fatalf("expected %v back, got %v (ok=%v)", stamp, got, ok)
	}
}

func TestSessionMarkerLifecycle(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	token, err := local.CreateSessionMarker(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if userID, ok := local.ValidateSessionMarker(ctx, token); !ok || userID != "u1" {
		t.Fatalf("marker should resolve to u1, got %q (ok=%v)", userID, ok)
	}

	if err := local.ClearSessionMarker(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, ok := local.ValidateSessionMarker(ctx, token); ok {
		t.Fatal("cleared marker must not validate")
	}
}

func TestNewMarkerInvalidatesPrevious(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	first, _ := local.CreateSessionMarker(ctx, "u1")
	second, _ := local.CreateSessionMarker(ctx, "u1")

	if _, ok := local.ValidateSessionMarker(ctx, first); ok {
		t.Fatal("a new login must invalidate the previous marker")
	}
	if userID, ok := local.ValidateSessionMarker(ctx, second); !ok || userID != "u1" {
		t.Fatal("the fresh marker must stay valid")
	}
}

func TestValidateRejectsEmptyAndGarbage(t *testing.T) {
	local, _ := newTestLocalWithRedis(t)
	ctx := context.Background()

	if _, ok := local.ValidateSessionMarker(ctx, ""); ok {
		t.Fatal("empty token must not validate")
	}
	if _, ok := local.ValidateSessionMarker(ctx, "not-a-real-token"); ok {
		t.Fatal("unknown token must not validate")
	}
}
