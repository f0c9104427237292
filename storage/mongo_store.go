package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"review-monitor/models"
)

const (
	maxIDAttempts = 5
	settingsID    = "monitor"
)

type snapshotDoc struct {
	RunID     string    `bson:"_id"`
	ScrapedAt time.Time `bson:"scraped_at"`
	Payload   string    `bson:"payload"`
}

type settingsDoc struct {
	ID              string `bson:"_id"`
	models.Settings `bson:",inline"`
}

// MongoStore keeps businesses and snapshots in MongoDB, one document per
// business and one per run.
type MongoStore struct {
	client     *mongo.Client
	businesses *mongo.Collection
	snapshots  *mongo.Collection
	settings   *mongo.Collection
}

// NewMongoStore connects to uri and uses database dbName.
func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:     client,
		businesses: db.Collection("businesses"),
		snapshots:  db.Collection("snapshots"),
		settings:   db.Collection("settings"),
	}

	_, err = s.snapshots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scraped_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ListBusinesses(ctx context.Context) ([]models.BusinessConfig, error) {
	cur, err := s.businesses.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list businesses: %w", err)
	}
	out := []models.BusinessConfig{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode businesses: %w", err)
	}
	return out, nil
}

func (s *MongoStore) AddBusiness(ctx context.Context, b models.BusinessConfig) (models.BusinessConfig, error) {
	b, err := validateBusiness(b)
	if err != nil {
		return b, err
	}

	// Concurrent writers can race for the same max+1 id; the unique _id
	// index rejects the loser, which then retries with a fresh max.
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var last models.BusinessConfig
		err := s.businesses.FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&last)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return b, fmt.Errorf("mongo: next business id: %w", err)
		}

		b.ID = last.ID + 1
		_, err = s.businesses.InsertOne(ctx, b)
		if err == nil {
			return b, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return b, fmt.Errorf("mongo: add business: %w", err)
		}
	}
	return b, fmt.Errorf("mongo: add business: id contention after %d attempts", maxIDAttempts)
}

func (s *MongoStore) DeleteBusiness(ctx context.Context, id int64) error {
	res, err := s.businesses.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete business: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// ReplaceBusinesses swaps the business collection and the settings. The
// steps are not atomic; multi-document transactions need a replica set.
func (s *MongoStore) ReplaceBusinesses(ctx context.Context, dir models.Directory) (models.Directory, error) {
	dir, err := normalizeDirectory(dir)
	if err != nil {
		return dir, err
	}

	if _, err := s.businesses.DeleteMany(ctx, bson.D{}); err != nil {
		return dir, fmt.Errorf("mongo: clear businesses: %w", err)
	}
	if len(dir.Businesses) > 0 {
		docs := make([]interface{}, 0, len(dir.Businesses))
		for _, b := range dir.Businesses {
			docs = append(docs, b)
		}
		if _, err := s.businesses.InsertMany(ctx, docs); err != nil {
			return dir, fmt.Errorf("mongo: insert businesses: %w", err)
		}
	}

	doc := settingsDoc{ID: settingsID, Settings: dir.Settings}
	_, err = s.settings.ReplaceOne(ctx, bson.M{"_id": settingsID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return dir, fmt.Errorf("mongo: save settings: %w", err)
	}
	return dir, nil
}

func (s *MongoStore) Settings(ctx context.Context) (models.Settings, error) {
	var doc settingsDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Settings{}, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("mongo: read settings: %w", err)
	}
	return doc.Settings, nil
}

func (s *MongoStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mongo: encode snapshot: %w", err)
	}
	doc := snapshotDoc{RunID: snap.RunID, ScrapedAt: snap.ScrapedAt, Payload: string(payload)}

	_, err = s.snapshots.ReplaceOne(ctx, bson.M{"_id": snap.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save snapshot: %w", err)
	}
	return nil
}

func (s *MongoStore) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var doc snapshotDoc
	err := s.snapshots.FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "scraped_at", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: latest snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(doc.Payload), &snap); err != nil {
		return nil, fmt.Errorf("mongo: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
