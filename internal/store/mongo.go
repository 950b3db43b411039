package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// MongoStore keeps subscribers in a MongoDB collection, one document per email.
//
// The client is connected lazily on first use and reused afterwards. Concurrent
// first calls wait on the same connection attempt; a failed attempt is retried
// by the next call.
type MongoStore struct {
	cfg MongoConfig

	mu     sync.Mutex
	client *mongo.Client
	coll   *mongo.Collection
}

// subscriberDoc mirrors the users collection. Coordinates are stored as
// strings, as existing documents carry them.
type subscriberDoc struct {
	Email     string    `bson:"email"`
	Weather   string    `bson:"weather"`
	Lat       string    `bson:"lat,omitempty"`
	Lon       string    `bson:"lon,omitempty"`
	City      string    `bson:"city,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// emailCollation matches emails case-insensitively, so documents written
// before emails were lowercased are still found.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// NewMongoStore creates a MongoStore. No connection is made until first use.
func NewMongoStore(cfg MongoConfig) *MongoStore {
	if cfg.Database == "" {
		cfg.Database = "weather_app"
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &MongoStore{cfg: cfg}
}

// NewMongoStoreWithCollection wraps an already connected collection (for tests).
func NewMongoStoreWithCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// collection returns the connected collection, connecting on the first call.
func (s *MongoStore) collection(ctx context.Context) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coll != nil {
		return s.coll, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(s.cfg.Database).Collection(s.cfg.Collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensuring email index: %w", err)
	}

	s.client = client
	s.coll = coll
	return coll, nil
}

// Ping verifies connectivity, connecting first if needed.
func (s *MongoStore) Ping(ctx context.Context) error {
	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	return coll.Database().Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client if one was opened.
func (s *MongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.coll = nil
	return err
}

// ListAll returns every subscriber in the collection's natural order.
func (s *MongoStore) ListAll(ctx context.Context) ([]subscription.Subscriber, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}

	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}

	var docs []subscriberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable("decode subscribers", err)
	}

	subs := make([]subscription.Subscriber, 0, len(docs))
	for _, d := range docs {
		subs = append(subs, d.toSubscriber())
	}
	return subs, nil
}

// FindByEmail returns the subscriber for email.
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return subscription.Subscriber{}, unavailable("find subscriber", err)
	}

	var doc subscriberDoc
	opts := options.FindOne().SetCollation(emailCollation)
	if err := coll.FindOne(ctx, bson.M{"email": email}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return subscription.Subscriber{}, subscription.ErrNotFound
		}
		return subscription.Subscriber{}, unavailable("find subscriber", err)
	}
	return doc.toSubscriber(), nil
}

// Create inserts sub; the unique email index rejects duplicates.
func (s *MongoStore) Create(ctx context.Context, sub subscription.Subscriber) error {
	coll, err := s.collection(ctx)
	if err != nil {
		return unavailable("create subscriber", err)
	}

	if _, err := coll.InsertOne(ctx, fromSubscriber(sub)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return subscription.ErrDuplicateEmail
		}
		return unavailable("create subscriber", err)
	}
	return nil
}

// DeleteByEmail removes and returns the subscriber for email.
func (s *MongoStore) DeleteByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return subscription.Subscriber{}, unavailable("delete subscriber", err)
	}

	var doc subscriberDoc
	opts := options.FindOneAndDelete().SetCollation(emailCollation)
	if err := coll.FindOneAndDelete(ctx, bson.M{"email": email}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return subscription.Subscriber{}, subscription.ErrNotFound
		}
		return subscription.Subscriber{}, unavailable("delete subscriber", err)
	}
	return doc.toSubscriber(), nil
}

func fromSubscriber(sub subscription.Subscriber) subscriberDoc {
	doc := subscriberDoc{
		Email:     sub.Email,
		Weather:   sub.WeatherCondition,
		City:      sub.City,
		CreatedAt: sub.CreatedAt,
	}
	if sub.Latitude != nil {
		doc.Lat = strconv.FormatFloat(*sub.Latitude, 'f', -1, 64)
	}
	if sub.Longitude != nil {
		doc.Lon = strconv.FormatFloat(*sub.Longitude, 'f', -1, 64)
	}
	return doc
}

func (d subscriberDoc) toSubscriber() subscription.Subscriber {
	return subscription.Subscriber{
		Email:            d.Email,
		WeatherCondition: d.Weather,
		Latitude:         parseCoordinate(d.Lat),
		Longitude:        parseCoordinate(d.Lon),
		City:             d.City,
		CreatedAt:        d.CreatedAt,
	}
}

// parseCoordinate returns nil for empty or unparseable values so the
// subscriber is skipped rather than matched against a wrong location.
func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
