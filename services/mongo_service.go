package services

import (
	"context"
	"log"
	"sync"
	"time"

	"screener_backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB collection names
const (
	MongoIndicatorsCollection = "stock_indicators"
)

// MongoMirror mirrors indicator snapshots to MongoDB Atlas for downstream
// consumers. It is strictly optional: when MONGODB_URI is unset the mirror is
// disabled and every call is a no-op, and mirror failures never fail a
// refresh run.
type MongoMirror struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool
	lastError   string
}

// GlobalMongoMirror is the shared mirror instance, nil until initialized.
var GlobalMongoMirror *MongoMirror

// InitMongoMirror initializes the mirror from config. A missing URI disables
// the mirror without error; a failed connection is logged and retried lazily
// on the next mirror call.
func InitMongoMirror(uri, database string) {
	if uri == "" {
		log.Println("MONGODB_URI not set, MongoDB mirroring disabled")
		GlobalMongoMirror = nil
		return
	}

	mirror := &MongoMirror{uriSet: true}
	if err := mirror.connect(uri, database); err != nil {
		log.Printf("MongoDB mirror unavailable: %v", err)
	}
	GlobalMongoMirror = mirror
}

// connect establishes the Atlas connection and verifies it with a ping.
func (m *MongoMirror) connect(uri, database string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.setError(err)
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		m.setError(err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(database)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	log.Printf("Connected to MongoDB, mirroring to database %q", database)
	return nil
}

func (m *MongoMirror) setError(err error) {
	m.mu.Lock()
	m.isConnected = false
	m.lastError = err.Error()
	m.mu.Unlock()
}

// Connected reports whether the mirror has a live connection.
func (m *MongoMirror) Connected() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// MirrorSnapshot upserts one symbol's indicator snapshot. Failures are
// logged only; the relational store remains the source of truth.
func (m *MongoMirror) MirrorSnapshot(row models.StockIndicator) {
	if m == nil || !m.Connected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := bson.M{
		"_id":        row.Symbol,
		"updated_at": time.Now(),
		"snapshot":   row,
	}
	coll := m.database.Collection(MongoIndicatorsCollection)
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": row.Symbol}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		log.Printf("%s: failed to mirror snapshot to MongoDB: %v", row.Symbol, err)
	}
}

// Close disconnects the mirror client.
func (m *MongoMirror) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.client.Disconnect(ctx)
		m.isConnected = false
	}
}
