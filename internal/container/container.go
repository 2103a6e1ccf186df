package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/greatwhitesecurity/opshub/internal/airtable"
	"github.com/greatwhitesecurity/opshub/internal/assets"
	"github.com/greatwhitesecurity/opshub/internal/audit"
	"github.com/greatwhitesecurity/opshub/internal/auth"
	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/handlers"
	"github.com/greatwhitesecurity/opshub/internal/health"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/greatwhitesecurity/opshub/internal/middleware"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/payments"
	"github.com/greatwhitesecurity/opshub/internal/ratelimit"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/greatwhitesecurity/opshub/internal/store"
	"github.com/greatwhitesecurity/opshub/internal/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	EventsMemory    = "memory"
	EventsRedis     = "redis"

	auditConsumerGroup = "audit"
)

// Redis holds the optional Redis client. Client is nil when no address is configured.
type Redis struct {
	Client *redis.Client
}

func (r *Redis) Shutdown() error {
	if r.Client == nil {
		return nil
	}

	return r.Client.Close()
}

// Postgres holds the pool used by the postgres storage backend. Pool is nil
// with the memory backend.
type Postgres struct {
	Pool *pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	if p.Pool != nil {
		p.Pool.Close()
	}

	return nil
}

// Repositories are the storage contracts of the selected backend.
type Repositories struct {
	Links  shortlink.Repository
	Codes  availability.Repository
	Checks availability.CheckLog
	Audit  audit.Store
}

// Services are the domain services shared by handlers and the sweeper.
type Services struct {
	Links      *shortlink.Service
	Codes      *availability.Codes
	Recorder   *availability.Recorder
	Dispatcher *availability.Dispatcher
	Replies    *availability.Replies
}

// Publishers are the typed event publish functions.
type Publishers struct {
	LinkCreated           messaging.Publish[events.LinkCreated]
	LinkResolved          messaging.Publish[events.LinkResolved]
	AvailabilityResponded messaging.Publish[events.AvailabilityResponded]
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		var cfg zap.Config
		if opts.LogFormat == "json" {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
		}

		if opts.LogLevel != "" {
			level, err := zapcore.ParseLevel(opts.LogLevel)
			if err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
			}

			cfg.Level = zap.NewAtomicLevelAt(level)
		}

		return cfg.Build()
	})
}

// RedisPackage provides the optional Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return &Redis{}, nil
		}

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage connects to Postgres and applies migrations when the
// postgres storage backend is selected.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.Storage != StoragePostgres {
			return &Postgres{}, nil
		}

		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("storage %q requires a database url", opts.Storage)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("pinging postgres: %w", err)
		}

		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		do.MustInvoke[*zap.Logger](i).Info("postgres ready")

		return &Postgres{Pool: pool}, nil
	})
}

// RepositoryPackage provides the storage contracts for the selected backend.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Repositories, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var repos *Repositories

		switch opts.Storage {
		case StorageMemory:
			repos = &Repositories{
				Links:  store.NewMemoryStore(),
				Codes:  store.NewAvailabilityMemoryStore(),
				Checks: store.NewCheckMemoryLog(),
				Audit:  audit.NewLogStore(logger),
			}
		case StoragePostgres:
			pool := do.MustInvoke[*Postgres](i).Pool
			repos = &Repositories{
				Links:  store.NewPostgresStore(pool),
				Codes:  store.NewAvailabilityPostgresStore(pool),
				Checks: store.NewCheckPostgresLog(pool),
				Audit:  store.NewAuditPostgresStore(pool),
			}
		default:
			return nil, fmt.Errorf("unknown storage backend %q", opts.Storage)
		}

		if client := do.MustInvoke[*Redis](i).Client; client != nil {
			repos.Links = store.NewRedisCacheRepository(repos.Links, client, opts.linkRetention(), logger)
		}

		return repos, nil
	})
}

// RecordsPackage provides the system of record: Airtable when configured,
// otherwise an empty in-memory store for local development.
func RecordsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (records.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.AirtableAPIKey == "" {
			do.MustInvoke[*zap.Logger](i).Warn("airtable not configured, using in-memory records")

			return store.NewRecordsMemoryStore(), nil
		}

		return airtable.New(airtable.Config{
			APIKey:         opts.AirtableAPIKey,
			BaseID:         opts.AirtableBaseID,
			EntityTable:    opts.AirtableEntityTable,
			ResponderTable: opts.AirtableResponderTable,
			Timeout:        opts.upstreamTimeout(),
		}), nil
	})
}

// CollaboratorsPackage provides the SMS, payment and asset clients.
func CollaboratorsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (notify.Notifier, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.TwilioAccountSID == "" {
			logger.Warn("twilio not configured, outbound sms will only be logged")

			return notify.NewLogNotifier(logger), nil
		}

		twilio := notify.NewTwilio(notify.TwilioConfig{
			AccountSID: opts.TwilioAccountSID,
			AuthToken:  opts.TwilioAuthToken,
			From:       opts.TwilioFrom,
			Timeout:    opts.upstreamTimeout(),
		})

		return notify.NewThrottled(twilio, opts.SMSPerSecond, 1), nil
	})

	do.Provide(injector, func(i *do.Injector) (payments.Gateway, error) {
		opts := do.MustInvoke[*Options](i)

		return payments.NewStripe(payments.StripeConfig{
			SecretKey:  opts.StripeSecretKey,
			SuccessURL: opts.StripeSuccessURL,
			CancelURL:  opts.StripeCancelURL,
			Timeout:    opts.upstreamTimeout(),
		}), nil
	})

	do.Provide(injector, func(i *do.Injector) (assets.Store, error) {
		opts := do.MustInvoke[*Options](i)

		return assets.NewCloudinary(assets.CloudinaryConfig{
			CloudName: opts.CloudinaryCloudName,
			APIKey:    opts.CloudinaryAPIKey,
			APISecret: opts.CloudinaryAPISecret,
			Timeout:   opts.upstreamTimeout(),
		}), nil
	})
}

// EventsPackage provides the publisher group and, for the in-process
// backend, the subscriber sharing its channel.
func EventsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		wmLogger := messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i))

		switch opts.EventsBackend {
		case EventsMemory:
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		case EventsRedis:
			client := do.MustInvoke[*Redis](i).Client
			if client == nil {
				return nil, fmt.Errorf("events backend %q requires a redis address", opts.EventsBackend)
			}

			publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
				Client:     client,
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			}, wmLogger)
			if err != nil {
				return nil, fmt.Errorf("creating redis stream publisher: %w", err)
			}

			return messaging.NewPublisherGroup(publisher), nil
		default:
			return nil, fmt.Errorf("unknown events backend %q", opts.EventsBackend)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		wmLogger := messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i))

		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*Publishers, error) {
		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		return &Publishers{
			LinkCreated:           messaging.NewPublishFunc[events.LinkCreated](publisher, events.TopicLinkCreated),
			LinkResolved:          messaging.NewPublishFunc[events.LinkResolved](publisher, events.TopicLinkResolved),
			AvailabilityResponded: messaging.NewPublishFunc[events.AvailabilityResponded](publisher, events.TopicAvailabilityResponded),
		}, nil
	})
}

// ConsumerGroupPackage provides the audit consumers. With the memory backend
// they read the server's own channel; with redis they join a stream consumer group.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var subscriber message.Subscriber

		switch opts.EventsBackend {
		case EventsMemory:
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
		case EventsRedis:
			client := do.MustInvoke[*Redis](i).Client
			if client == nil {
				return nil, fmt.Errorf("events backend %q requires a redis address", opts.EventsBackend)
			}

			sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        client,
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: auditConsumerGroup,
			}, messaging.NewZapLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("creating redis stream subscriber: %w", err)
			}

			subscriber = sub
		default:
			return nil, fmt.Errorf("unknown events backend %q", opts.EventsBackend)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(audit.Consumers(subscriber, do.MustInvoke[*Repositories](i).Audit, logger)...)

		return group, nil
	})
}

// ServicesPackage provides the domain services.
func ServicesPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Services, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repos := do.MustInvoke[*Repositories](i)
		recordStore := do.MustInvoke[records.Store](i)
		notifier := do.MustInvoke[notify.Notifier](i)
		publishers := do.MustInvoke[*Publishers](i)

		location, err := time.LoadLocation(opts.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", opts.TimeZone, err)
		}

		linkCodes, err := shortlink.NewGenerator(shortlink.UnambiguousAlphabet)
		if err != nil {
			return nil, err
		}

		availabilityCodes, err := shortlink.NewGenerator(shortlink.LowerAlphabet)
		if err != nil {
			return nil, err
		}

		codes := availability.NewCodes(repos.Codes, repos.Checks, availabilityCodes, opts.availabilityRetention())
		recorder := availability.NewRecorder(recordStore, notifier, opts.AdminPhone,
			publishers.AvailabilityResponded, logger, availability.WithLocation(location))

		return &Services{
			Links:      shortlink.NewService(repos.Links, linkCodes, opts.linkRetention()),
			Codes:      codes,
			Recorder:   recorder,
			Dispatcher: availability.NewDispatcher(codes, repos.Checks, recordStore, notifier, opts.BaseURL, logger),
			Replies:    availability.NewReplies(recordStore, repos.Checks, recorder),
		}, nil
	})
}

// AuthPackage provides operator sessions.
func AuthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*auth.Sessions, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.AdminPasswordHash == "" {
			logger.Warn("no operator password hash configured, admin login is disabled")
		}

		if opts.SessionSecret == "" {
			logger.Warn("no session secret configured, sessions will not survive a restart")
		}

		return auth.NewSessions(opts.SessionSecret, opts.AdminPasswordHash, opts.sessionTTL())
	})
}

// RateLimitPackage provides the policy limiter, shared through Redis when configured.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		var counters ratelimit.Store = store.NewRateLimitMemoryStore()

		if client := do.MustInvoke[*Redis](i).Client; client != nil {
			counters = store.NewRateLimitRedisStore(client)
		}

		return ratelimit.NewPolicyLimiter(counters, ratelimit.DefaultPolicy()), nil
	})
}

// SweeperPackage provides the expiry sweeper.
func SweeperPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*sweeper.Sweeper, error) {
		opts := do.MustInvoke[*Options](i)
		services := do.MustInvoke[*Services](i)

		return sweeper.New(opts.SweepSchedule, time.Minute, do.MustInvoke[*zap.Logger](i),
			sweeper.Job{Name: "short_links", Run: services.Links.Sweep},
			sweeper.Job{Name: "availability_codes", Run: services.Codes.Sweep},
		)
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)

		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer)

		if origins := splitList(opts.CORSOrigins); len(origins) > 0 {
			router.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAge:         300,
			}))
		}

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		services := do.MustInvoke[*Services](i)
		publishers := do.MustInvoke[*Publishers](i)
		sessions := do.MustInvoke[*auth.Sessions](i)

		config := huma.DefaultConfig("Great White Security Ops Hub", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		}

		api := humachi.New(router, config)
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(api, do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(), logger),
			middleware.RequireSession(api, sessions),
		)

		checks := map[string]health.Checker{}
		if client := do.MustInvoke[*Redis](i).Client; client != nil {
			checks["redis"] = health.RedisChecker(client)
		}

		if pool := do.MustInvoke[*Postgres](i).Pool; pool != nil {
			checks["postgres"] = health.PostgresChecker(pool)
		}

		health.RegisterRoutes(api, health.NewHandler(checks))

		links := handlers.NewLinkHandler(services.Links, opts.BaseURL,
			publishers.LinkCreated, publishers.LinkResolved, logger)

		handlers.RegisterRoutes(api, handlers.Handlers{
			Links:        links,
			Availability: handlers.NewAvailabilityHandler(services.Codes, services.Recorder, services.Dispatcher, logger),
			Payments:     handlers.NewPaymentHandler(do.MustInvoke[payments.Gateway](i), links, logger),
			Assets:       handlers.NewAssetHandler(do.MustInvoke[assets.Store](i), logger),
			Sessions:     handlers.NewSessionHandler(sessions, logger),
			SMSWebhook: handlers.NewSMSWebhookHandler(services.Replies, opts.TwilioAuthToken,
				strings.TrimRight(opts.BaseURL, "/")+"/webhooks/sms", logger),
		})

		return api, nil
	})
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// ServerPackages registers everything the HTTP server needs.
func ServerPackages(injector *do.Injector) {
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	RepositoryPackage(injector)
	RecordsPackage(injector)
	CollaboratorsPackage(injector)
	EventsPackage(injector)
	ConsumerGroupPackage(injector)
	ServicesPackage(injector)
	AuthPackage(injector)
	RateLimitPackage(injector)
	SweeperPackage(injector)
	HTTPPackage(injector)
}
