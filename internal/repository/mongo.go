// Package repository contains the MongoDB persistence layer. One repository
// per collection; interfaces are declared where they are consumed (the
// service layer), so these types only need to satisfy them.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Connect dials MongoDB and pings the primary before returning the database
// handle. Driver-level timeouts apply to every subsequent operation.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the workflows rely on: unique email per
// user, unique (user, product) per review, and the one-time token lookups.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}},
		{Keys: bson.D{{Key: "emailVerificationToken", Value: 1}}},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	reviews := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection("reviews").Indexes().CreateMany(ctx, reviews); err != nil {
		return fmt.Errorf("reviews indexes: %w", err)
	}

	orders := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("orders").Indexes().CreateMany(ctx, orders); err != nil {
		return fmt.Errorf("orders indexes: %w", err)
	}

	return nil
}
