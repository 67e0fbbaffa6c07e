package db

import (
	"context"
	"fmt"

	"github.com/tywin1104/mc-dashboard/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const requestsCollection = "requests"

// Service reads whitelist requests straight from the backend's database
type Service struct {
	db       *mongo.Client
	database string
}

// NewService create new mongoDb service that reads from the given database
func NewService(db *mongo.Client, database string) *Service {
	return &Service{
		db:       db,
		database: database,
	}
}

// Ping checks for db connection
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx, readpref.Primary())
}

// GetRequests query for whitelistRequests in db, newest first
func (s *Service) GetRequests(ctx context.Context, filter interface{}) ([]types.WhitelistRequest, error) {
	collection := s.db.Database(s.database).Collection(requestsCollection)
	cur, err := collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find requests: %w", err)
	}
	defer cur.Close(ctx)

	requests := make([]types.WhitelistRequest, 0)
	for cur.Next(ctx) {
		var request types.WhitelistRequest
		if err := cur.Decode(&request); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// FetchRequests returns every request in the collection
func (s *Service) FetchRequests(ctx context.Context) ([]types.WhitelistRequest, error) {
	return s.GetRequests(ctx, bson.D{})
}
