package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/pkg/utils"
)

// AuthService composes sync facade operations into the login, registration,
// logout and session-restore flows. Nothing here raises past the boundary:
// callers get a boolean outcome, failures are logged.
type AuthService struct {
	sync  *SyncService
	local *LocalStore
}

func NewAuthService(sync *SyncService, local *LocalStore) *AuthService {
	return &AuthService{sync: sync, local: local}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RollNo   string `json:"roll_no"`
	Mobile   string `json:"mobile"`
}

// AuthResult is what a successful login or registration hands back: the
// session marker token plus the user it belongs to.
type AuthResult struct {
	Token string
	User  models.User
}

// Login authenticates and opens a session: user counters bumped, a
// LoginSession audit row created, a session marker persisted.
func (a *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*AuthResult, bool) {
	u := a.sync.Authenticate(ctx, email, password)
	if u == nil {
		return nil, false
	}

	now := time.Now().UTC()
	u.LastLoginAt = now
	u.LoginCount++
	u.IsActive = true
	saved := a.sync.SaveUser(ctx, *u)

	a.sync.SaveSession(ctx, models.LoginSession{
		ID:         uuid.NewString(),
		UserID:     saved.ID,
		UserEmail:  saved.Email,
		UserName:   saved.Name,
		UserRole:   saved.Role,
		LoginTime:  now,
		IPAddress:  ip,
		UserAgent:  userAgent,
		DeviceInfo: utils.DeviceInfo(userAgent),
		IsActive:   true,
	})

	token, err := a.local.CreateSessionMarker(ctx, saved.ID)
	if err != nil {
		log.Printf("auth: failed to persist session marker: %v", err)
		return nil, false
	}
	return &AuthResult{Token: token, User: saved}, true
}

// Register creates a student account. Duplicate email is a boolean failure,
// not an error; the remote identity is created opportunistically and its
// failure is tolerated.
func (a *AuthService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*AuthResult, bool) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, false
	}
	if existing := a.sync.GetUserByEmail(ctx, in.Email); existing != nil {
		return nil, false
	}

	a.sync.RemoteSignUp(ctx, in.Email, in.Password)

	now := time.Now().UTC()
	u := a.sync.SaveUser(ctx, models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         models.RoleStudent,
		RollNo:       in.RollNo,
		Mobile:       in.Mobile,
		RegisteredAt: now,
		LastLoginAt:  now,
		LoginCount:   1,
		IsActive:     true,
	})

	if err := a.local.SetCredential(ctx, in.Email, in.Password); err != nil {
		log.Printf("auth: failed to store credential for %s: %v", in.Email, err)
	}

	a.sync.SaveNotification(ctx, models.Notification{
		UserID:  u.ID,
		Title:   "Welcome to the lab",
		Message: "Your account is ready. Browse the inventory and submit a borrow request to get started.",
		Type:    "welcome",
	})

	a.sync.SaveSession(ctx, models.LoginSession{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		UserEmail:  u.Email,
		UserName:   u.Name,
		UserRole:   u.Role,
		LoginTime:  now,
		IPAddress:  ip,
		UserAgent:  userAgent,
		DeviceInfo: utils.DeviceInfo(userAgent),
		IsActive:   true,
	})

	token, err := a.local.CreateSessionMarker(ctx, u.ID)
	if err != nil {
		log.Printf("auth: failed to persist session marker: %v", err)
		return nil, false
	}
	return &AuthResult{Token: token, User: u}, true
}

// Logout closes the user's active sessions, signs out of the remote side
// best-effort and clears the marker.
func (a *AuthService) Logout(ctx context.Context, token string) bool {
	userID, ok := a.local.ValidateSessionMarker(ctx, token)
	if !ok {
		return false
	}

	a.sync.CloseSessions(ctx, userID)

	if u := a.sync.GetUserByID(ctx, userID); u != nil {
		a.sync.RemoteSignOut(ctx, u.Email)
		u.IsActive = false
		a.sync.SaveUser(ctx, *u)
	}

	if err := a.local.ClearSessionMarker(ctx, token); err != nil {
		log.Printf("auth: failed to clear session marker: %v", err)
	}
	return true
}

// Current resolves a marker token to its user without touching any state.
// Used by request handlers to identify the caller.
func (a *AuthService) Current(ctx context.Context, token string) (*models.User, bool) {
	userID, ok := a.local.ValidateSessionMarker(ctx, token)
	if !ok {
		return nil, false
	}
	u := a.sync.GetUserByID(ctx, userID)
	if u == nil {
		return nil, false
	}
	return u, true
}

// Restore re-validates a persisted marker on startup: fetch the user it
// points at and mark them active again. A marker that no longer resolves is
// discarded.
func (a *AuthService) Restore(ctx context.Context, token string) (*models.User, bool) {
	userID, ok := a.local.ValidateSessionMarker(ctx, token)
	if !ok {
		return nil, false
	}

	u := a.sync.GetUserByID(ctx, userID)
	if u == nil {
		_ = a.local.ClearSessionMarker(ctx, token)
		return nil, false
	}

	u.IsActive = true
	saved := a.sync.SaveUser(ctx, *u)
	return &saved, true
}
