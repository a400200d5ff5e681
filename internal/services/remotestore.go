package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/pkg/utils"
)

// Mongo collection names.
const (
	colUsers         = "users"
	colComponents    = "components"
	colRequests      = "requests"
	colNotifications = "notifications"
	colSessions      = "loginSessions"
	colCredentials   = "credentials"
)

// RemoteStore wraps the remote document database. Every method lets failures
// propagate; the sync facade owns the decision to fall back. Timestamps on
// documents are assigned by the server ($$NOW / $currentDate), never by the
// client clock.
type RemoteStore struct {
	db *mongo.Database
}

func NewRemoteStore(db *mongo.Database) *RemoteStore {
	return &RemoteStore{db: db}
}

// toDocument flattens an entity into a bson document with the id and the
// server-stamped fields stripped, so an upsert can never overwrite them with
// client-side values.
func toDocument(entity interface{}) (bson.M, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	delete(doc, "created_at")
	delete(doc, "updated_at")
	return doc, nil
}

// upsertDoc writes the full entity under id in one round trip. A pipeline
// update stamps updated_at with the server clock and created_at only when the
// document is new.
func (r *RemoteStore) upsertDoc(ctx context.Context, colName, id string, entity interface{}) error {
	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: doc}},
		{{Key: "$set", Value: bson.M{
			"updated_at": "$$NOW",
			"created_at": bson.M{"$ifNull": []interface{}{"$created_at", "$$NOW"}},
		}}},
	}
	_, err = r.db.Collection(colName).UpdateByID(ctx, id, update, options.Update().SetUpsert(true))
	return err
}

// updateDoc applies a partial update; fields not named in partial are
// preserved.
func (r *RemoteStore) updateDoc(ctx context.Context, colName, id string, partial bson.M) error {
	update := bson.M{
		"$set":         partial,
		"$currentDate": bson.M{"updated_at": true},
	}
	_, err := r.db.Collection(colName).UpdateByID(ctx, id, update)
	return err
}

func (r *RemoteStore) deleteDoc(ctx context.Context, colName, id string) error {
	_, err := r.db.Collection(colName).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// findOne returns nil (not an error) when no document matches, so the facade
// can distinguish "absent" from "remote failed".
func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var v T
	err := col.FindOne(ctx, filter).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// listCollection returns matching documents newest-first.
func listCollection[T any](ctx context.Context, col *mongo.Collection, filter bson.M) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Users ---

func (r *RemoteStore) CreateUser(ctx context.Context, u models.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return u.ID, r.upsertDoc(ctx, colUsers, u.ID, u)
}

func (r *RemoteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, r.db.Collection(colUsers), bson.M{"_id": id})
}

// GetUserByField returns the first match under the remote store's default
// ordering. Which document wins when several share a value (duplicate emails
// should not exist, but are not enforced) is deliberately left to the store.
func (r *RemoteStore) GetUserByField(ctx context.Context, field string, value interface{}) (*models.User, error) {
	return findOne[models.User](ctx, r.db.Collection(colUsers), bson.M{field: value})
}

func (r *RemoteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.GetUserByField(ctx, "email", email)
}

func (r *RemoteStore) UpdateUser(ctx context.Context, id string, partial bson.M) error {
	return r.updateDoc(ctx, colUsers, id, partial)
}

func (r *RemoteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return listCollection[models.User](ctx, r.db.Collection(colUsers), bson.M{})
}

// --- Components ---

func (r *RemoteStore) CreateComponent(ctx context.Context, c models.Component) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c.ID, r.upsertDoc(ctx, colComponents, c.ID, c)
}

func (r *RemoteStore) GetComponent(ctx context.Context, id string) (*models.Component, error) {
	return findOne[models.Component](ctx, r.db.Collection(colComponents), bson.M{"_id": id})
}

func (r *RemoteStore) UpdateComponent(ctx context.Context, id string, partial bson.M) error {
	return r.updateDoc(ctx, colComponents, id, partial)
}

func (r *RemoteStore) DeleteComponent(ctx context.Context, id string) error {
	return r.deleteDoc(ctx, colComponents, id)
}

func (r *RemoteStore) ListComponents(ctx context.Context) ([]models.Component, error) {
	return listCollection[models.Component](ctx, r.db.Collection(colComponents), bson.M{})
}

// --- Borrow requests ---

func (r *RemoteStore) CreateRequest(ctx context.Context, req models.BorrowRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req.ID, r.upsertDoc(ctx, colRequests, req.ID, req)
}

func (r *RemoteStore) GetRequest(ctx context.Context, id string) (*models.BorrowRequest, error) {
	return findOne[models.BorrowRequest](ctx, r.db.Collection(colRequests), bson.M{"_id": id})
}

func (r *RemoteStore) UpdateRequest(ctx context.Context, id string, partial bson.M) error {
	return r.updateDoc(ctx, colRequests, id, partial)
}

func (r *RemoteStore) ListRequests(ctx context.Context) ([]models.BorrowRequest, error) {
	return listCollection[models.BorrowRequest](ctx, r.db.Collection(colRequests), bson.M{})
}

func (r *RemoteStore) ListRequestsByStudent(ctx context.Context, studentID string) ([]models.BorrowRequest, error) {
	return listCollection[models.BorrowRequest](ctx, r.db.Collection(colRequests), bson.M{"student_id": studentID})
}

// --- Notifications ---

func (r *RemoteStore) CreateNotification(ctx context.Context, n models.Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return n.ID, r.upsertDoc(ctx, colNotifications, n.ID, n)
}

func (r *RemoteStore) UpdateNotification(ctx context.Context, id string, partial bson.M) error {
	return r.updateDoc(ctx, colNotifications, id, partial)
}

func (r *RemoteStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	return listCollection[models.Notification](ctx, r.db.Collection(colNotifications), bson.M{})
}

func (r *RemoteStore) ListNotificationsForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return listCollection[models.Notification](ctx, r.db.Collection(colNotifications), bson.M{"user_id": userID})
}

// --- Login sessions ---

func (r *RemoteStore) CreateSession(ctx context.Context, sess models.LoginSession) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	return sess.ID, r.upsertDoc(ctx, colSessions, sess.ID, sess)
}

func (r *RemoteStore) UpdateSession(ctx context.Context, id string, partial bson.M) error {
	return r.updateDoc(ctx, colSessions, id, partial)
}

func (r *RemoteStore) ListSessions(ctx context.Context) ([]models.LoginSession, error) {
	return listCollection[models.LoginSession](ctx, r.db.Collection(colSessions), bson.M{})
}

// --- Remote auth ---
// The credentials collection plays the remote authentication service. It is
// auxiliary: the system's own user/credential records stay authoritative and
// the local path must keep working with zero connectivity.

type credentialDoc struct {
	ID   string `bson:"_id" json:"id"`
	Hash string `bson:"hash" json:"-"`
}

func (r *RemoteStore) SignUp(ctx context.Context, email, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return r.upsertDoc(ctx, colCredentials, email, credentialDoc{ID: email, Hash: hash})
}

func (r *RemoteStore) SignIn(ctx context.Context, email, password string) (bool, error) {
	cred, err := findOne[credentialDoc](ctx, r.db.Collection(colCredentials), bson.M{"_id": email})
	if err != nil {
		return false, err
	}
	if cred == nil {
		return false, nil
	}
	valid, err := utils.VerifyPassword(password, cred.Hash)
	if err != nil {
		return false, err
	}
	return valid, nil
}

func (r *RemoteStore) SignOut(ctx context.Context, email string) error {
	update := bson.M{"$currentDate": bson.M{"last_sign_out": true}}
	_, err := r.db.Collection(colCredentials).UpdateByID(ctx, email, update)
	return err
}

// --- Seed data ---

// EnsureSeedData provisions the admin account and starter inventory exactly
// once. It checks before writing and runs the writes in one transaction so a
// crash cannot leave a half-seeded database.
func (r *RemoteStore) EnsureSeedData(ctx context.Context, adminEmail, adminPassword string) error {
	admin, err := r.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		return err
	}
	compCount, err := r.db.Collection(colComponents).CountDocuments(ctx, bson.M{}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if admin != nil && compCount > 0 {
		return nil
	}

	sess, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if admin == nil {
			adminUser := models.User{
				ID:           "admin-1",
				Name:         models.DefaultAdminName,
				Email:        adminEmail,
				Role:         models.RoleAdmin,
				RegisteredAt: time.Now().UTC(),
				IsActive:     true,
			}
			if err := r.upsertDoc(sc, colUsers, adminUser.ID, adminUser); err != nil {
				return nil, err
			}
			if err := r.SignUp(sc, adminEmail, adminPassword); err != nil {
				return nil, err
			}
		}
		if compCount == 0 {
			for _, c := range models.SeedComponents() {
				if err := r.upsertDoc(sc, colComponents, c.ID, c); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err == nil {
		log.Println("✅ Remote seed data ensured")
	}
	return err
}

// --- Change streams ---

// Subscription delivers the current contents of a collection: one initial
// snapshot, then a refreshed snapshot whenever the collection changes. The
// channel always holds the latest snapshot only; stale ones are dropped.
type Subscription[T any] struct {
	C      <-chan []T
	cancel context.CancelFunc
}

// Cancel stops the watch and closes the channel.
func (s *Subscription[T]) Cancel() { s.cancel() }

func watchCollection[T any](ctx context.Context, col *mongo.Collection) (*Subscription[T], error) {
	wctx, cancel := context.WithCancel(ctx)

	initial, err := listCollection[T](wctx, col, bson.M{})
	if err != nil {
		cancel()
		return nil, err
	}
	stream, err := col.Watch(wctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	ch := make(chan []T, 1)
	push := func(snap []T) {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}

	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		push(initial)
		for stream.Next(wctx) {
			snap, err := listCollection[T](wctx, col, bson.M{})
			if err != nil {
				log.Printf("remote store: snapshot refresh failed for %s: %v", col.Name(), err)
				return
			}
			push(snap)
		}
		if err := stream.Err(); err != nil && wctx.Err() == nil {
			log.Printf("remote store: change stream for %s ended: %v", col.Name(), err)
		}
	}()

	return &Subscription[T]{C: ch, cancel: cancel}, nil
}

func (r *RemoteStore) SubscribeUsers(ctx context.Context) (*Subscription[models.User], error) {
	return watchCollection[models.User](ctx, r.db.Collection(colUsers))
}

func (r *RemoteStore) SubscribeComponents(ctx context.Context) (*Subscription[models.Component], error) {
	return watchCollection[models.Component](ctx, r.db.Collection(colComponents))
}

func (r *RemoteStore) SubscribeRequests(ctx context.Context) (*Subscription[models.BorrowRequest], error) {
	return watchCollection[models.BorrowRequest](ctx, r.db.Collection(colRequests))
}

func (r *RemoteStore) SubscribeNotifications(ctx context.Context) (*Subscription[models.Notification], error) {
	return watchCollection[models.Notification](ctx, r.db.Collection(colNotifications))
}

func (r *RemoteStore) SubscribeSessions(ctx context.Context) (*Subscription[models.LoginSession], error) {
	return watchCollection[models.LoginSession](ctx, r.db.Collection(colSessions))
}
