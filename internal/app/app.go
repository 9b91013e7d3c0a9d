// Package app wires every runtime component (storage, cache, event
// bus, blob backend, job queue, rate limiter, websocket hub) into one
// Application, following the construction order the stores/services
// packages establish: platform primitives first, then the components
// that depend on them, then the HTTP surface last.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	gcsstorage "cloud.google.com/go/storage"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/titan-aas/titan-aas/internal/blobstore"
	"github.com/titan-aas/titan-aas/internal/broadcast"
	"github.com/titan-aas/titan-aas/internal/cache"
	"github.com/titan-aas/titan-aas/internal/config"
	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/httpapi"
	"github.com/titan-aas/titan-aas/internal/httpapi/middleware"
	"github.com/titan-aas/titan-aas/internal/jobqueue"
	"github.com/titan-aas/titan-aas/internal/logging"
	"github.com/titan-aas/titan-aas/internal/platform/database"
	"github.com/titan-aas/titan-aas/internal/platform/migrations"
	"github.com/titan-aas/titan-aas/internal/plugin"
	"github.com/titan-aas/titan-aas/internal/ratelimit"
	"github.com/titan-aas/titan-aas/internal/singlewriter"
	"github.com/titan-aas/titan-aas/internal/storage"
	postgresstore "github.com/titan-aas/titan-aas/internal/storage/postgres"
	"github.com/titan-aas/titan-aas/internal/ws"
	"github.com/titan-aas/titan-aas/pkg/version"
)

// Application holds every constructed runtime component. cmd/titan-aas
// builds one, mounts Handler behind an http.Server, and drives
// Start/Stop around that server's own lifecycle.
type Application struct {
	log    *logging.Logger
	db     *sqlx.DB
	redis  *redis.Client
	bus    eventbus.Bus
	writer  *singlewriter.Writer
	worker  *jobqueue.Worker
	sched   *jobqueue.Scheduler
	lease   *jobqueue.Lease
	plugins *plugin.Registry

	Handler http.Handler
}

// New constructs an Application from cfg: it opens the database,
// applies migrations, builds every storage/cache/queue/blob backend,
// and assembles the HTTP handler. It does not start any background
// goroutine; call Start for that.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logging.New("titan-aas", cfg.LogLevel, cfg.LogFormat)

	sqlDB, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxConnections)
	sqlDB.SetConnMaxIdleTime(cfg.DBIdleTimeout)

	if err := migrations.Apply(sqlDB); err != nil {
		return nil, fmt.Errorf("app: apply migrations: %w", err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	entityCache := cache.NewRedisCache(redisClient)

	bus := eventbus.NewMemoryBus(cfg.EventBusBuffer, log)

	blobBackend, err := newBlobBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: construct blob backend: %w", err)
	}
	blobMeta := blobstore.NewPostgresMetadataStore(db)

	hub := ws.NewHub()
	mqtt := broadcast.NewMQTTPublisher(log)
	graphql := broadcast.NewGraphQLPublisher(log)
	plugins := plugin.NewRegistry(log)
	pluginBroadcaster := broadcast.NewPluginBroadcaster(plugins)
	writer := singlewriter.New(entityCache, log, hub, mqtt, graphql, pluginBroadcaster)
	writer.Start(bus)

	queue := jobqueue.NewPostgresQueue(db)
	lease := jobqueue.NewLease(db, "titan-aas-worker", instanceID(), cfg.LeaderLeaseTTL, log)
	worker := jobqueue.New(queue, jobqueue.WorkerConfig{
		Name:         "titan-aas",
		BatchSize:    cfg.JobWorkerConcurrency,
		PollInterval: cfg.JobPollInterval,
	}, lease, log)
	jobqueue.RegisterBuiltinHandlers(worker, log)

	sched := jobqueue.NewScheduler(queue, log)
	if err := registerScheduledJobs(sched); err != nil {
		return nil, fmt.Errorf("app: register scheduled jobs: %w", err)
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.New(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	deps := httpapi.Deps{
		Shells:              postgresstore.New(db, string(storage.KindShell)),
		Submodels:           postgresstore.New(db, string(storage.KindSubmodel)),
		ConceptDescriptions: postgresstore.New(db, string(storage.KindConceptDesc)),
		ShellDescriptors:    postgresstore.New(db, string(storage.KindShellDescriptor)),
		SubmodelDescriptors: postgresstore.New(db, string(storage.KindSubmodelDescriptor)),

		Cache:    entityCache,
		Bus:      bus,
		Blobs:    blobBackend,
		BlobMeta: blobMeta,
		Jobs:     queue,
		Hub:      hub,
		Logger:   log,
		Limiter:  limiter,
		AuthCfg: middleware.AuthConfig{
			Issuer:     cfg.OIDCIssuer,
			Audience:   cfg.OIDCAudience,
			RolesClaim: cfg.OIDCRolesClaim,
			Logger:     log,
		},
		BodyMax: 16 << 20,
		Timeout: 30 * time.Second,
		Version: version.Version,
		Started: time.Now(),
		Readyz: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return sqlDB.PingContext(pingCtx)
		},
	}

	svc := httpapi.New(deps)

	return &Application{
		log:     log,
		db:      db,
		redis:   redisClient,
		bus:     bus,
		writer:  writer,
		worker:  worker,
		sched:   sched,
		lease:   lease,
		plugins: plugins,
		Handler: svc.Handler(),
	}, nil
}

// Start begins the background lifecycle: leader election, the job
// worker's poll loop, and the scheduler's cron submissions. It returns
// once those goroutines are launched; worker errors surface through
// the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	a.lease.Start(ctx)
	a.sched.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.worker.Run(ctx)
	}()
	return errCh
}

// Stop stops the worker, scheduler and lease (the reverse of Start's
// order), then the single writer, and releases the database and redis
// connections.
func (a *Application) Stop(ctx context.Context) error {
	a.worker.Stop()
	a.sched.Stop()
	a.lease.Stop()
	a.writer.Stop()
	a.plugins.UnloadAll(ctx)

	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("close redis client")
	}
	return a.db.Close()
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "titan-aas-worker"
	}
	return host
}

func registerScheduledJobs(sched *jobqueue.Scheduler) error {
	jobs := []jobqueue.ScheduledJob{
		{Spec: "@every 15m", TenantID: "", Task: jobqueue.TaskCleanupExpired, Payload: map[string]any{"resource_type": "all"}},
		{Spec: "@every 1h", TenantID: "", Task: jobqueue.TaskSyncRegistry, Payload: map[string]any{"direction": "sync"}},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// newBlobBackend selects and constructs the configured blobstore.Backend,
// building the real cloud SDK client for each non-local backend from
// its ambient credential chain.
func newBlobBackend(ctx context.Context, cfg *config.Config) (blobstore.Backend, error) {
	switch cfg.BlobStorageType {
	case config.BlobBackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		opts = append(opts, awsconfig.WithRegion(cfg.BlobS3Region))
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.BlobS3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.BlobS3Endpoint)
				o.UsePathStyle = true
			}
		})
		return blobstore.NewS3Backend(client, cfg.BlobS3Bucket, cfg.BlobInlineThreshold, cfg.BlobChunkSize), nil

	case config.BlobBackendGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("construct GCS client: %w", err)
		}
		return blobstore.NewGCSBackend(client.Bucket(cfg.BlobGCSBucket), cfg.BlobGCSBucket, cfg.BlobInlineThreshold, cfg.BlobChunkSize), nil

	case config.BlobBackendAzure:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("construct Azure credential: %w", err)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.BlobAzureAccount)
		client, err := azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("construct Azure client: %w", err)
		}
		return blobstore.NewAzureBackend(client, cfg.BlobAzureContainer, cfg.BlobInlineThreshold, cfg.BlobChunkSize), nil

	default:
		return blobstore.NewLocalBackend(cfg.BlobLocalPath, cfg.BlobInlineThreshold, cfg.BlobChunkSize), nil
	}
}
