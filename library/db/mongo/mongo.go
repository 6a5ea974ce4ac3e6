// Package mongo wraps the MongoDB client with an explicit open/close lifecycle.
package mongo

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/Laisky/institute-cms/library/log"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout      = 30 * time.Second
	healthCheckInterval = 10 * time.Second
	defaultHeartbeat    = 10 * time.Second
)

// DB is the handle handed to data access objects.
type DB interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	CurrentDB() *mongo.Database
}

// DialInfo defines the MongoDB connection information.
//
// URI takes precedence over the discrete fields when set.
type DialInfo struct {
	URI    string
	Addr   string
	DBName string
	User   string
	Pwd    string
	AuthDB string
}

type db struct {
	mu       sync.RWMutex
	cli      *mongo.Client
	dialInfo DialInfo
	cancel   context.CancelFunc
}

var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(dialInfo DialInfo) string {
	if dialInfo.URI != "" {
		return dialInfo.URI
	}

	uri := &url.URL{
		Scheme: "mongodb",
		Host:   dialInfo.Addr,
		Path:   "/" + dialInfo.DBName,
	}
	if dialInfo.User != "" || dialInfo.Pwd != "" {
		uri.User = url.UserPassword(dialInfo.User, dialInfo.Pwd)
	}
	if dialInfo.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", dialInfo.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

// NewDB connects to mongodb and verifies the connection with a ping.
//
// The caller owns the returned handle and must Close it on shutdown.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	if dialInfo.DBName == "" {
		return nil, errors.New("db name is required")
	}

	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName),
	)

	dialCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(buildMongoURI(dialInfo)).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(50).
		SetMaxConnIdleTime(300 * time.Second)

	cli, err := connectMongo(dialCtx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "connect db")
	}

	// fail at startup rather than on the first request
	if err := pingMongo(dialCtx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return nil, errors.Wrap(err, "ping db")
	}

	d := &db{cli: cli, dialInfo: dialInfo}
	d.startHealthCheck()
	return d, nil
}

// startHealthCheck logs when the server becomes unreachable.
// The driver reconnects by itself, this loop only reports.
func (d *db) startHealthCheck() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := d.Ping(pingCtx)
			pingCancel()
			if err != nil && ctx.Err() == nil {
				log.Logger.Warn("mongodb ping failed (driver will auto-recover)",
					zap.Error(err),
					zap.String("addr", d.dialInfo.Addr),
				)
			}
		}
	}()
}

// Ping checks the connection to the primary.
func (d *db) Ping(ctx context.Context) error {
	cli := d.client()
	if cli == nil {
		return errors.New("mongo client closed")
	}

	return pingMongo(ctx, cli)
}

// CurrentDB returns the database named in the dial info.
func (d *db) CurrentDB() *mongo.Database {
	return d.client().Database(d.dialInfo.DBName)
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// Close stops the health check and disconnects the client.
func (d *db) Close(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	d.mu.Lock()
	cli := d.cli
	d.cli = nil
	d.mu.Unlock()
	if cli == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	closeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := disconnectMongo(closeCtx, cli); err != nil {
		return errors.Wrap(err, "disconnect")
	}

	return nil
}

func (d *db) client() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cli
}
