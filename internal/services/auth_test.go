package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/robolab-backend/internal/models"
)

func newTestAuth(t *testing.T) (*AuthService, *SyncService, *LocalStore) {
	t.Helper()
	svc, local := newTestSync(t, nil) // local-only, the common degraded mode
	return NewAuthService(svc, local), svc, local
}

func TestRegisterLoginLogoutLifecycle(t *testing.T) {
	auth, svc, local := newTestAuth(t)
	ctx := context.Background()

	res, ok := auth.Register(ctx, RegisterInput{
		Name:     "Mira",
		Email:    "mira@example.com",
		Password: "robots",
		RollNo:   "21CS042",
	}, "10.0.0.5", "Mozilla/5.0 (Windows NT 10.0)")
	if !ok {
		t.Fatal("registration should succeed")
	}
	if res.Token == "" || res.User.Role != models.RoleStudent {
		t.Fatalf("expected a student account with a marker token, got %+v", res)
	}

	// Registration opens a session, so the student counts as online.
	if got := svc.GetSystemStats(ctx).OnlineUsers; got != 1 {
		t.Fatalf("expected 1 online user after registration, got %d", got)
	}

	if !auth.Logout(ctx, res.Token) {
		t.Fatal("logout with a valid token should succeed")
	}
	if got := svc.GetSystemStats(ctx).OnlineUsers; got != 0 {
		t.Fatalf("expected 0 online users after logout, got %d", got)
	}
	for _, sess := range local.Load(ctx).LoginSessions {
		if sess.UserID == res.User.ID {
			if sess.IsActive || sess.LogoutTime == nil || sess.SessionDuration < 0 {
				t.Fatalf("session not closed properly: %+v", sess)
			}
		}
	}

	// The marker is gone; a second logout is a no-op failure.
	if auth.Logout(ctx, res.Token) {
		t.Fatal("logout with a cleared token should fail")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	auth, svc, _ := newTestAuth(t)
	ctx := context.Background()

	if _, ok := auth.Register(ctx, RegisterInput{Name: "Mira", Email: "mira@example.com", Password: "robots"}, "", ""); !ok {
		t.Fatal("first registration should succeed")
	}
	before := len(svc.ListUsers(ctx))

	if _, ok := auth.Register(ctx, RegisterInput{Name: "Impostor", Email: "mira@example.com", Password: "other"}, "", ""); ok {
		t.Fatal("duplicate email must be rejected")
	}
	if after := len(svc.ListUsers(ctx)); after != before {
		t.Fatalf("rejected registration must not change the user set: %d -> %d", before, after)
	}
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "a@example.com", Password: "x"},
		{Name: "A", Password: "x"},
		{Name: "A", Email: "a@example.com"},
	}
	for _, in := range cases {
		if _, ok := auth.Register(ctx, in, "", ""); ok {
			t.Fatalf("incomplete input %+v must be rejected", in)
		}
	}
}

func TestLoginBumpsCountersAndOpensOneSession(t *testing.T) {
	auth, _, local := newTestAuth(t)
	ctx := context.Background()

	res, _ := auth.Register(ctx, RegisterInput{Name: "Mira", Email: "mira@example.com", Password: "robots"}, "", "")
	auth.Logout(ctx, res.Token)

	got, ok := auth.Login(ctx, "mira@example.com", "robots", "10.0.0.5", "Mozilla/5.0 (Linux; Android 14)")
	if !ok {
		t.Fatal("login with the registered password should succeed")
	}
	if got.User.LoginCount != 2 {
		t.Fatalf("expected login count 2 (register + login), got %d", got.User.LoginCount)
	}

	active := 0
	for _, sess := range local.Load(ctx).LoginSessions {
		if sess.UserID == got.User.ID && sess.IsActive {
			active++
			if sess.DeviceInfo != "Android" {
				t.Fatalf("expected device info parsed from the user agent, got %q", sess.DeviceInfo)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active session, got %d", active)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	res, _ := auth.Register(ctx, RegisterInput{Name: "Mira", Email: "mira@example.com", Password: "robots"}, "", "")
	auth.Logout(ctx, res.Token)

	if _, ok := auth.Login(ctx, "mira@example.com", "wrong", "", ""); ok {
		t.Fatal("wrong password must not log in")
	}
}

func TestAdminFirstRunLogin(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	res, ok := auth.Login(ctx, models.DefaultAdminEmail, "ralab", "127.0.0.1", "")
	if !ok {
		t.Fatal("seeded admin should log in with the default password on first run")
	}
	if res.User.Role != models.RoleAdmin {
		t.Fatalf("expected the admin role, got %q", res.User.Role)
	}
}

func TestCurrentResolvesWithoutMutation(t *testing.T) {
	auth, svc, _ := newTestAuth(t)
	ctx := context.Background()

	res, _ := auth.Register(ctx, RegisterInput{Name: "Mira", Email: "mira@example.com", Password: "robots"}, "", "")

	u, ok := auth.Current(ctx, res.Token)
	if !ok || u.ID != res.User.ID {
		t.Fatalf("current should resolve the marker, got %v (ok=%v)", u, ok)
	}
	if got := svc.GetUserByID(ctx, res.User.ID).LoginCount; got != 1 {
		t.Fatalf("current must not bump counters, got login count %d", got)
	}

	if _, ok := auth.Current(ctx, "bogus"); ok {
		t.Fatal("unknown token must not resolve")
	}
}

func TestRestoreSession(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	res, _ := auth.Register(ctx, RegisterInput{Name: "Mira", Email: "mira@example.com", Password: "robots"}, "", "")

	u, ok := auth.Restore(ctx, res.Token)
	if !ok || u.ID != res.User.ID || !u.IsActive {
		t.Fatalf("restore should return the active user, got %v (ok=%v)", u, ok)
	}

	if _, ok := auth.Restore(ctx, "stale-token"); ok {
		t.Fatal("a marker that no longer resolves must fail restore")
	}
}
