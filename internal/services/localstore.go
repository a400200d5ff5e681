package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/pkg/utils"
)

const (
	// Fixed key slots in Redis. The whole dataset lives under one key; the
	// credential map, session markers and last-sync stamp each get their own.
	SystemDataKey  = "robolab:systemdata"
	CredentialsKey = "robolab:credentials"
	LastSyncKey    = "robolab:last_sync"

	// MarkerKeyPrefix is the Redis key prefix for session markers
	MarkerKeyPrefix = "robolab:session:"
	// UserMarkerKeyPrefix is the Redis key prefix for user->marker mapping
	UserMarkerKeyPrefix = "robolab:user_session:"

	// MarkerDuration is 7 days
	MarkerDuration = 7 * 24 * time.Hour
)

// LocalStore persists the full SystemData snapshot and the credential map in
// Redis. Every mutating helper is a full load-mutate-save cycle over the one
// snapshot key — O(dataset) per call. That does not scale, and is fine: the
// dataset is a single lab's inventory, and the single-key layout is what lets
// the sync facade swap the whole local view atomically during a resync.
type LocalStore struct {
	rdb           *redis.Client
	adminEmail    string
	adminPassword string
}

func NewLocalStore(rdb *redis.Client, adminEmail, adminPassword string) *LocalStore {
	return &LocalStore{rdb: rdb, adminEmail: adminEmail, adminPassword: adminPassword}
}

// Load returns the persisted snapshot, or the built-in default dataset (one
// seeded admin, one starter component) when no snapshot exists or the stored
// one fails to parse. A corrupt snapshot is discarded, never surfaced.
func (s *LocalStore) Load(ctx context.Context) models.SystemData {
	val, err := s.rdb.Get(ctx, SystemDataKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("local store: read failed, serving default dataset: %v", err)
		}
		return models.DefaultSystemData()
	}

	var data models.SystemData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		log.Printf("local store: discarding unreadable snapshot: %v", err)
		return models.DefaultSystemData()
	}
	return data
}

// Save overwrites the persisted snapshot. Callers log-and-continue on
// failure; a failed save must never take the request down with it.
func (s *LocalStore) Save(ctx context.Context, data models.SystemData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, SystemDataKey, raw, 0).Err()
}

// mutate runs one load-mutate-save cycle.
func (s *LocalStore) mutate(ctx context.Context, fn func(*models.SystemData)) error {
	data := s.Load(ctx)
	fn(&data)
	return s.Save(ctx, data)
}

// UpsertUser replaces the user with the same ID, or appends.
func (s *LocalStore) UpsertUser(ctx context.Context, u models.User) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.Users {
			if data.Users[i].ID == u.ID {
				data.Users[i] = u
				return
			}
		}
		data.Users = append(data.Users, u)
	})
}

func (s *LocalStore) FindUserByEmail(ctx context.Context, email string) *models.User {
	data := s.Load(ctx)
	for i := range data.Users {
		if data.Users[i].Email == email {
			return &data.Users[i]
		}
	}
	return nil
}

func (s *LocalStore) FindUserByID(ctx context.Context, id string) *models.User {
	data := s.Load(ctx)
	for i := range data.Users {
		if data.Users[i].ID == id {
			return &data.Users[i]
		}
	}
	return nil
}

func (s *LocalStore) UpsertComponent(ctx context.Context, c models.Component) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.Components {
			if data.Components[i].ID == c.ID {
				data.Components[i] = c
				return
			}
		}
		data.Components = append(data.Components, c)
	})
}

func (s *LocalStore) DeleteComponent(ctx context.Context, id string) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		kept := data.Components[:0]
		for _, c := range data.Components {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		data.Components = kept
	})
}

func (s *LocalStore) UpsertRequest(ctx context.Context, r models.BorrowRequest) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.Requests {
			if data.Requests[i].ID == r.ID {
				data.Requests[i] = r
				return
			}
		}
		data.Requests = append(data.Requests, r)
	})
}

func (s *LocalStore) UpsertNotification(ctx context.Context, n models.Notification) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.Notifications {
			if data.Notifications[i].ID == n.ID {
				data.Notifications[i] = n
				return
			}
		}
		data.Notifications = append(data.Notifications, n)
	})
}

// MarkNotificationRead flips the read flag; notifications are never mutated
// any other way.
func (s *LocalStore) MarkNotificationRead(ctx context.Context, id string) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.Notifications {
			if data.Notifications[i].ID == id {
				data.Notifications[i].Read = true
				return
			}
		}
	})
}

func (s *LocalStore) UpsertSession(ctx context.Context, sess models.LoginSession) error {
	return s.mutate(ctx, func(data *models.SystemData) {
		for i := range data.LoginSessions {
			if data.LoginSessions[i].ID == sess.ID {
				data.LoginSessions[i] = sess
				return
			}
		}
		data.LoginSessions = append(data.LoginSessions, sess)
	})
}

// --- Credential map ---

func (s *LocalStore) loadCredentials(ctx context.Context) map[string]string {
	creds := make(map[string]string)
	val, err := s.rdb.Get(ctx, CredentialsKey).Result()
	if err != nil {
		return creds
	}
	if err := json.Unmarshal([]byte(val), &creds); err != nil {
		log.Printf("local store: discarding unreadable credential map: %v", err)
		return make(map[string]string)
	}
	return creds
}

func (s *LocalStore) saveCredentials(ctx context.Context, creds map[string]string) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, CredentialsKey, raw, 0).Err()
}

// SetCredential stores an argon2id hash for the email. The plaintext never
// touches Redis.
func (s *LocalStore) SetCredential(ctx context.Context, email, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	creds := s.loadCredentials(ctx)
	creds[email] = hash
	return s.saveCredentials(ctx, creds)
}

// VerifyCredential checks a password against the stored hash. For the fixed
// admin email with no stored credential yet, the default admin credential is
// provisioned and persisted first — a first-run bootstrap, not a general
// account-creation path.
func (s *LocalStore) VerifyCredential(ctx context.Context, email, password string) bool {
	creds := s.loadCredentials(ctx)
	hash, ok := creds[email]
	if !ok {
		if email != s.adminEmail {
			return false
		}
		if err := s.SetCredential(ctx, email, s.adminPassword); err != nil {
			log.Printf("local store: admin credential bootstrap failed: %v", err)
			return false
		}
		hash = s.loadCredentials(ctx)[email]
	}

	valid, err := utils.VerifyPassword(password, hash)
	if err != nil {
		log.Printf("local store: credential verify failed for %s: %v", email, err)
		return false
	}
	return valid
}

// --- Last-sync stamp ---

func (s *LocalStore) SetLastSync(ctx context.Context, t time.Time) {
	if err := s.rdb.Set(ctx, LastSyncKey, t.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		log.Printf("local store: failed to record last sync: %v", err)
	}
}

func (s *LocalStore) LastSync(ctx context.Context) (time.Time, bool) {
	val, err := s.rdb.Get(ctx, LastSyncKey).Result()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// --- Session markers ---
// The marker records "who is currently logged in" for a client, independent
// of the LoginSession audit rows.

// CreateSessionMarker creates a marker for the user and returns its token.
// An existing marker for the same user is invalidated first, so the 7-day
// timer resets from the current login.
func (s *LocalStore) CreateSessionMarker(ctx context.Context, userID string) (string, error) {
	_ = s.ClearUserMarkers(ctx, userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := s.rdb.Set(ctx, MarkerKeyPrefix+token, userID, MarkerDuration).Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, UserMarkerKeyPrefix+userID, token, MarkerDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSessionMarker returns the user ID a marker token belongs to.
func (s *LocalStore) ValidateSessionMarker(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	userID, err := s.rdb.Get(ctx, MarkerKeyPrefix+token).Result()
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}

// ClearSessionMarker removes a marker.
func (s *LocalStore) ClearSessionMarker(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	userID, err := s.rdb.Get(ctx, MarkerKeyPrefix+token).Result()
	if err == nil && userID != "" {
		_ = s.rdb.Del(ctx, UserMarkerKeyPrefix+userID).Err()
	}
	return s.rdb.Del(ctx, MarkerKeyPrefix+token).Err()
}

// ClearUserMarkers removes the user's current marker, if any.
func (s *LocalStore) ClearUserMarkers(ctx context.Context, userID string) error {
	token, err := s.rdb.Get(ctx, UserMarkerKeyPrefix+userID).Result()
	if err == nil && token != "" {
		_ = s.rdb.Del(ctx, MarkerKeyPrefix+token).Err()
	}
	return s.rdb.Del(ctx, UserMarkerKeyPrefix+userID).Err()
}
