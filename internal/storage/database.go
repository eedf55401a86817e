package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

// MongoArchive keeps every harvested record in a MongoDB collection, one
// document per record, tagged with its run.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      int
	logger     *slog.Logger
}

// NewMongoArchive connects to MongoDB and verifies the connection.
func NewMongoArchive(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoArchive, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoArchive{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_archive"),
	}, nil
}

func (s *MongoArchive) Name() string { return "mongodb" }

func (s *MongoArchive) Store(ctx context.Context, batch Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	docs := make([]any, len(batch.Records))
	for i, r := range batch.Records {
		docs[i] = archiveDoc(batch, r)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.count += len(docs)
	s.logger.Debug("records archived", "run_id", batch.RunID, "count", len(docs), "total", s.count)
	return nil
}

func archiveDoc(batch Batch, r types.TrendRecord) bson.M {
	doc := bson.M{
		"run_id":       batch.RunID,
		"harvested_at": batch.HarvestedAt,
		"source":       string(r.Source),
		"rank":         r.Rank,
		"main_keyword": r.MainKeyword,
	}
	if r.Source == types.SourceNewsPortal {
		doc["link"] = r.Link
	} else {
		related := r.RelatedKeywords
		if related == nil {
			related = []string{}
		}
		doc["category"] = r.Category
		doc["related_keywords"] = related
	}
	return doc
}

func (s *MongoArchive) Close() error {
	s.logger.Info("mongodb archive closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
