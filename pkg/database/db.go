package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/singleflight"
)

const (
	CollStories       = "stories"
	CollUsers         = "users"
	CollLikes         = "likes"
	CollCommentLikes  = "comment_likes"
	CollPulseFeedback = "pulse_feedback"
	CollComments      = "comments"
	CollNotifications = "notifications"
)

// DialFunc opens and verifies a client connection.
type DialFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// Connector owns the process-wide MongoDB client. It is created once at startup
// and handed to repositories. Connecting is idempotent: concurrent callers share
// one in-flight attempt, and a failed attempt can be retried by the next caller.
type Connector struct {
	uri    string
	dbName string
	dial   DialFunc

	mu     sync.RWMutex
	client *mongo.Client
	group  singleflight.Group
}

func NewConnector(uri, dbName string) *Connector {
	return NewConnectorWithDialer(uri, dbName, dialMongo)
}

func NewConnectorWithDialer(uri, dbName string, dial DialFunc) *Connector {
	return &Connector{uri: uri, dbName: dbName, dial: dial}
}

// Client returns the established client, connecting on first use.
func (c *Connector) Client(ctx context.Context) (*mongo.Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	v, err, _ := c.group.Do("connect", func() (interface{}, error) {
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		cl, err := c.dial(ctx, c.uri)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.client = cl
		c.mu.Unlock()

		logger.Log.WithField("database", c.dbName).Info("Connected to MongoDB")
		return cl, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return v.(*mongo.Client), nil
}

// Database returns the application database handle.
func (c *Connector) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.dbName), nil
}

func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return err
	}
	logger.Log.Info("Disconnected from MongoDB")
	return nil
}

func dialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// TranslateError maps driver errors onto apperror sentinels.
func TranslateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", apperror.ErrDuplicate, err)
	default:
		return err
	}
}

// CounterEquals matches a counter field holding n. A zero also matches a
// missing or null field, which decodes to zero.
func CounterEquals(n int64) any {
	if n == 0 {
		return bson.M{"$in": bson.A{0, nil}}
	}
	return n
}
