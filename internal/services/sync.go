package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/AnshRaj112/robolab-backend/internal/models"
)

// RemoteBackend is the slice of the remote store the facade depends on.
// *RemoteStore implements it; tests substitute a fake so the fallback policy
// can be exercised without a network.
type RemoteBackend interface {
	EnsureSeedData(ctx context.Context, adminEmail, adminPassword string) error

	CreateUser(ctx context.Context, u models.User) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, partial bson.M) error
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateComponent(ctx context.Context, c models.Component) (string, error)
	GetComponent(ctx context.Context, id string) (*models.Component, error)
	UpdateComponent(ctx context.Context, id string, partial bson.M) error
	DeleteComponent(ctx context.Context, id string) error
	ListComponents(ctx context.Context) ([]models.Component, error)

	CreateRequest(ctx context.Context, req models.BorrowRequest) (string, error)
	GetRequest(ctx context.Context, id string) (*models.BorrowRequest, error)
	UpdateRequest(ctx context.Context, id string, partial bson.M) error
	ListRequests(ctx context.Context) ([]models.BorrowRequest, error)
	ListRequestsByStudent(ctx context.Context, studentID string) ([]models.BorrowRequest, error)

	CreateNotification(ctx context.Context, n models.Notification) (string, error)
	UpdateNotification(ctx context.Context, id string, partial bson.M) error
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string) ([]models.Notification, error)

	CreateSession(ctx context.Context, sess models.LoginSession) (string, error)
	UpdateSession(ctx context.Context, id string, partial bson.M) error
	ListSessions(ctx context.Context) ([]models.LoginSession, error)

	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (bool, error)
	SignOut(ctx context.Context, email string) error
}

// gateOpen is the per-operation gate: remote calls are only attempted while
// the process believes it is online and remote initialization has not failed.
func gateOpen(online, remoteEnabled bool) bool {
	return online && remoteEnabled
}

// remoteWins decides whether a remote read result is returned as-is. An
// empty result loses just like an error does: the local store answers
// whenever remote is empty, absent or erroring, which is what makes first-run
// and degraded states behave sensibly.
func remoteWins(err error, empty bool) bool {
	return err == nil && !empty
}

// SyncService is the facade over the remote store and the local store. Its
// invariant: every mutating operation durably applies to the local store by
// the time the call returns; the remote side is best-effort and its failures
// never escape this boundary.
//
// Operations on the same entity are not safe to race against each other —
// the local snapshot is read-modify-write with no versioning. Accepted at
// single-lab scale; concurrent multi-admin use would need per-entity
// compare-and-swap.
type SyncService struct {
	remote        RemoteBackend
	local         *LocalStore
	adminEmail    string
	adminPassword string

	mu            sync.Mutex
	online        bool
	remoteEnabled bool
}

func NewSyncService(remote RemoteBackend, local *LocalStore, adminEmail, adminPassword string) *SyncService {
	return &SyncService{
		remote:        remote,
		local:         local,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		online:        true,
		remoteEnabled: remote != nil,
	}
}

// Initialize seeds the remote store and pulls a full snapshot into the local
// store. Any failure latches the facade into local-only mode for the rest of
// the process; there is no automatic re-enable.
func (s *SyncService) Initialize(ctx context.Context) {
	if s.remote == nil {
		s.disableRemote("remote store not configured")
		return
	}
	if err := s.remote.EnsureSeedData(ctx, s.adminEmail, s.adminPassword); err != nil {
		s.disableRemote("seed initialization failed: " + err.Error())
		return
	}
	if err := s.ResyncFromRemote(ctx); err != nil {
		s.disableRemote("initial resync failed: " + err.Error())
		return
	}
	log.Println("✅ Remote store initialized, running in dual-backend mode")
}

func (s *SyncService) disableRemote(reason string) {
	s.mu.Lock()
	s.remoteEnabled = false
	s.mu.Unlock()
	log.Printf("⚠️  Remote store disabled for this process, serving from local store: %s", reason)
}

func (s *SyncService) remoteAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote != nil && gateOpen(s.online, s.remoteEnabled)
}

// SetOnline records a connectivity transition. Going offline takes no
// immediate action; coming back online triggers one best-effort resync.
func (s *SyncService) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	enabled := s.remoteEnabled
	s.mu.Unlock()

	if online && !wasOnline && enabled && s.remote != nil {
		if err := s.ResyncFromRemote(ctx); err != nil {
			log.Printf("⚠️  Resync after reconnect failed: %v", err)
		}
	}
}

func (s *SyncService) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *SyncService) RemoteEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteEnabled
}

// ResyncFromRemote copies the remote collections' current contents over the
// local snapshot (one-directional) and records the sync time.
func (s *SyncService) ResyncFromRemote(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("remote store not configured")
	}

	users, err := s.remote.ListUsers(ctx)
	if err != nil {
		return err
	}
	components, err := s.remote.ListComponents(ctx)
	if err != nil {
		return err
	}
	requests, err := s.remote.ListRequests(ctx)
	if err != nil {
		return err
	}
	notifications, err := s.remote.ListNotifications(ctx)
	if err != nil {
		return err
	}
	sessions, err := s.remote.ListSessions(ctx)
	if err != nil {
		return err
	}

	data := models.SystemData{
		Users:         users,
		Components:    components,
		Requests:      requests,
		Notifications: notifications,
		LoginSessions: sessions,
	}
	if err := s.local.Save(ctx, data); err != nil {
		return err
	}
	s.local.SetLastSync(ctx, time.Now().UTC())
	log.Println("✅ Local snapshot resynced from remote")
	return nil
}

// --- Users ---

// SaveUser applies the uniform write policy: remote first when reachable,
// local always. The returned user carries the final identity.
func (s *SyncService) SaveUser(ctx context.Context, u models.User) models.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if s.remoteAvailable() {
		if id, err := s.remote.CreateUser(ctx, u); err != nil {
			log.Printf("sync: remote user write failed, keeping local copy: %v", err)
		} else {
			u.ID = id
		}
	}
	if err := s.local.UpsertUser(ctx, u); err != nil {
		log.Printf("sync: local user write failed: %v", err)
	}
	return u
}

func (s *SyncService) GetUserByEmail(ctx context.Context, email string) *models.User {
	if s.remoteAvailable() {
		u, err := s.remote.GetUserByEmail(ctx, email)
		if remoteWins(err, u == nil) {
			return u
		}
		if err != nil {
			log.Printf("sync: remote user read failed, falling back to local: %v", err)
		}
	}
	return s.local.FindUserByEmail(ctx, email)
}

func (s *SyncService) GetUserByID(ctx context.Context, id string) *models.User {
	if s.remoteAvailable() {
		u, err := s.remote.GetUser(ctx, id)
		if remoteWins(err, u == nil) {
			return u
		}
		if err != nil {
			log.Printf("sync: remote user read failed, falling back to local: %v", err)
		}
	}
	return s.local.FindUserByID(ctx, id)
}

func (s *SyncService) ListUsers(ctx context.Context) []models.User {
	if s.remoteAvailable() {
		users, err := s.remote.ListUsers(ctx)
		if remoteWins(err, len(users) == 0) {
			return users
		}
		if err != nil {
			log.Printf("sync: remote user list failed, falling back to local: %v", err)
		}
	}
	return s.local.Load(ctx).Users
}

// --- Components ---

func (s *SyncService) SaveComponent(ctx context.Context, c models.Component) models.Component {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if s.remoteAvailable() {
		if id, err := s.remote.CreateComponent(ctx, c); err != nil {
			log.Printf("sync: remote component write failed, keeping local copy: %v", err)
		} else {
			c.ID = id
		}
	}
	if err := s.local.UpsertComponent(ctx, c); err != nil {
		log.Printf("sync: local component write failed: %v", err)
	}
	return c
}

func (s *SyncService) GetComponent(ctx context.Context, id string) *models.Component {
	if s.remoteAvailable() {
		c, err := s.remote.GetComponent(ctx, id)
		if remoteWins(err, c == nil) {
			return c
		}
		if err != nil {
			log.Printf("sync: remote component read failed, falling back to local: %v", err)
		}
	}
	data := s.local.Load(ctx)
	for i := range data.Components {
		if data.Components[i].ID == id {
			return &data.Components[i]
		}
	}
	return nil
}

func (s *SyncService) DeleteComponent(ctx context.Context, id string) {
	if s.remoteAvailable() {
		if err := s.remote.DeleteComponent(ctx, id); err != nil {
			log.Printf("sync: remote component delete failed, deleting locally anyway: %v", err)
		}
	}
	if err := s.local.DeleteComponent(ctx, id); err != nil {
		log.Printf("sync: local component delete failed: %v", err)
	}
}

func (s *SyncService) ListComponents(ctx context.Context) []models.Component {
	if s.remoteAvailable() {
		components, err := s.remote.ListComponents(ctx)
		if remoteWins(err, len(components) == 0) {
			return components
		}
		if err != nil {
			log.Printf("sync: remote component list failed, falling back to local: %v", err)
		}
	}
	return s.local.Load(ctx).Components
}

// --- Borrow requests ---

func (s *SyncService) SaveRequest(ctx context.Context, req models.BorrowRequest) models.BorrowRequest {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if s.remoteAvailable() {
		if id, err := s.remote.CreateRequest(ctx, req); err != nil {
			log.Printf("sync: remote request write failed, keeping local copy: %v", err)
		} else {
			req.ID = id
		}
	}
	if err := s.local.UpsertRequest(ctx, req); err != nil {
		log.Printf("sync: local request write failed: %v", err)
	}
	return req
}

func (s *SyncService) GetRequest(ctx context.Context, id string) *models.BorrowRequest {
	if s.remoteAvailable() {
		req, err := s.remote.GetRequest(ctx, id)
		if remoteWins(err, req == nil) {
			return req
		}
		if err != nil {
			log.Printf("sync: remote request read failed, falling back to local: %v", err)
		}
	}
	data := s.local.Load(ctx)
	for i := range data.Requests {
		if data.Requests[i].ID == id {
			return &data.Requests[i]
		}
	}
	return nil
}

func (s *SyncService) ListRequests(ctx context.Context) []models.BorrowRequest {
	if s.remoteAvailable() {
		requests, err := s.remote.ListRequests(ctx)
		if remoteWins(err, len(requests) == 0) {
			return requests
		}
		if err != nil {
			log.Printf("sync: remote request list failed, falling back to local: %v", err)
		}
	}
	return s.local.Load(ctx).Requests
}

func (s *SyncService) ListRequestsByStudent(ctx context.Context, studentID string) []models.BorrowRequest {
	if s.remoteAvailable() {
		requests, err := s.remote.ListRequestsByStudent(ctx, studentID)
		if remoteWins(err, len(requests) == 0) {
			return requests
		}
		if err != nil {
			log.Printf("sync: remote request list failed, falling back to local: %v", err)
		}
	}
	var out []models.BorrowRequest
	for _, req := range s.local.Load(ctx).Requests {
		if req.StudentID == studentID {
			out = append(out, req)
		}
	}
	return out
}

// --- Notifications ---

func (s *SyncService) SaveNotification(ctx context.Context, n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if s.remoteAvailable() {
		if id, err := s.remote.CreateNotification(ctx, n); err != nil {
			log.Printf("sync: remote notification write failed, keeping local copy: %v", err)
		} else {
			n.ID = id
		}
	}
	if err := s.local.UpsertNotification(ctx, n); err != nil {
		log.Printf("sync: local notification write failed: %v", err)
	}
	return n
}

func (s *SyncService) NotificationsForUser(ctx context.Context, userID string) []models.Notification {
	if s.remoteAvailable() {
		notifications, err := s.remote.ListNotificationsForUser(ctx, userID)
		if remoteWins(err, len(notifications) == 0) {
			return notifications
		}
		if err != nil {
			log.Printf("sync: remote notification list failed, falling back to local: %v", err)
		}
	}
	var out []models.Notification
	for _, n := range s.local.Load(ctx).Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *SyncService) MarkNotificationRead(ctx context.Context, id string) {
	if s.remoteAvailable() {
		if err := s.remote.UpdateNotification(ctx, id, bson.M{"read": true}); err != nil {
			log.Printf("sync: remote notification update failed, updating locally anyway: %v", err)
		}
	}
	if err := s.local.MarkNotificationRead(ctx, id); err != nil {
		log.Printf("sync: local notification update failed: %v", err)
	}
}

// --- Login sessions ---

func (s *SyncService) SaveSession(ctx context.Context, sess models.LoginSession) models.LoginSession {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if s.remoteAvailable() {
		if id, err := s.remote.CreateSession(ctx, sess); err != nil {
			log.Printf("sync: remote session write failed, keeping local copy: %v", err)
		} else {
			sess.ID = id
		}
	}
	if err := s.local.UpsertSession(ctx, sess); err != nil {
		log.Printf("sync: local session write failed: %v", err)
	}
	return sess
}

func (s *SyncService) ListSessions(ctx context.Context) []models.LoginSession {
	if s.remoteAvailable() {
		sessions, err := s.remote.ListSessions(ctx)
		if remoteWins(err, len(sessions) == 0) {
			return sessions
		}
		if err != nil {
			log.Printf("sync: remote session list failed, falling back to local: %v", err)
		}
	}
	return s.local.Load(ctx).LoginSessions
}

// CloseSessions closes every active session of the user: isActive off,
// logout time set, duration computed. Remote gets a partial update per
// session, best-effort; local always applies.
func (s *SyncService) CloseSessions(ctx context.Context, userID string) int {
	now := time.Now().UTC()
	closed := 0
	for _, sess := range s.local.Load(ctx).LoginSessions {
		if sess.UserID != userID || !sess.IsActive {
			continue
		}
		logout := now
		sess.IsActive = false
		sess.LogoutTime = &logout
		sess.SessionDuration = logout.Sub(sess.LoginTime).Milliseconds()

		if s.remoteAvailable() {
			partial := bson.M{
				"is_active":        false,
				"logout_time":      logout,
				"session_duration": sess.SessionDuration,
			}
			if err := s.remote.UpdateSession(ctx, sess.ID, partial); err != nil {
				log.Printf("sync: remote session close failed, closing locally anyway: %v", err)
			}
		}
		if err := s.local.UpsertSession(ctx, sess); err != nil {
			log.Printf("sync: local session close failed: %v", err)
		}
		closed++
	}
	return closed
}

// --- Remote auth passthrough (best-effort) ---

func (s *SyncService) RemoteSignUp(ctx context.Context, email, password string) {
	if !s.remoteAvailable() {
		return
	}
	if err := s.remote.SignUp(ctx, email, password); err != nil {
		log.Printf("sync: remote sign-up failed, account remains local-only: %v", err)
	}
}

func (s *SyncService) RemoteSignOut(ctx context.Context, email string) {
	if !s.remoteAvailable() {
		return
	}
	if err := s.remote.SignOut(ctx, email); err != nil {
		log.Printf("sync: remote sign-out failed: %v", err)
	}
}

// Authenticate is the write+read hybrid: remote sign-in plus remote profile
// fetch, and only full success makes the remote identity authoritative (it
// is then mirrored into the local store, credential included, so the account
// keeps working offline). Anything less falls through to the local
// credential path, which is an independent authentication method, not a
// cache of the remote one.
func (s *SyncService) Authenticate(ctx context.Context, email, password string) *models.User {
	if s.remoteAvailable() {
		ok, err := s.remote.SignIn(ctx, email, password)
		if err == nil && ok {
			u, perr := s.remote.GetUserByEmail(ctx, email)
			if perr == nil && u != nil {
				if lerr := s.local.UpsertUser(ctx, *u); lerr != nil {
					log.Printf("sync: failed to mirror authenticated user locally: %v", lerr)
				}
				if cerr := s.local.SetCredential(ctx, email, password); cerr != nil {
					log.Printf("sync: failed to mirror credential locally: %v", cerr)
				}
				return u
			}
			if perr != nil {
				log.Printf("sync: remote profile fetch failed, trying local auth: %v", perr)
			}
		} else if err != nil {
			log.Printf("sync: remote sign-in failed, trying local auth: %v", err)
		}
	}

	if !s.local.VerifyCredential(ctx, email, password) {
		return nil
	}
	return s.local.FindUserByEmail(ctx, email)
}

// --- Stats ---

// SystemStats is computed from the local snapshot, the view every mutation
// is guaranteed to have reached.
type SystemStats struct {
	TotalUsers      int        `json:"total_users"`
	TotalComponents int        `json:"total_components"`
	AvailableUnits  int        `json:"available_units"`
	PendingRequests int        `json:"pending_requests"`
	ActiveLoans     int        `json:"active_loans"`
	OnlineUsers     int        `json:"online_users"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
}

func (s *SyncService) GetSystemStats(ctx context.Context) SystemStats {
	data := s.local.Load(ctx)

	stats := SystemStats{
		TotalUsers:      len(data.Users),
		TotalComponents: len(data.Components),
	}
	for _, c := range data.Components {
		stats.AvailableUnits += c.AvailableQuantity
	}
	for _, req := range data.Requests {
		switch req.Status {
		case models.RequestPending:
			stats.PendingRequests++
		case models.RequestApproved:
			stats.ActiveLoans++
		}
	}
	online := make(map[string]struct{})
	for _, sess := range data.LoginSessions {
		if sess.IsActive {
			online[sess.UserID] = struct{}{}
		}
	}
	stats.OnlineUsers = len(online)

	if t, ok := s.local.LastSync(ctx); ok {
		stats.LastSyncAt = &t
	}
	return stats
}
