package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/alert"
	"github.com/appetiteclub/tableside/services/order/internal/board"
	"github.com/appetiteclub/tableside/services/order/internal/cart"
	"github.com/appetiteclub/tableside/services/order/internal/feed"
	"github.com/appetiteclub/tableside/services/order/internal/mongo"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/appetiteclub/tableside/services/order/internal/postgres"
	"github.com/redis/go-redis/v9"
)

const (
	AppName    = "order"
	AppVersion = "0.1.0"
)

// App encapsulates the order service application
type App struct {
	config   *apt.Config
	logger   apt.Logger
	settings settings
	micro    *apt.Micro
}

func New(config *apt.Config, logger apt.Logger) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	lookup := func(key string) string {
		v, _ := config.GetString(key)
		return v
	}
	return &App{
		config:   config,
		logger:   logger,
		settings: loadSettings(lookup, logger),
	}, nil
}

// Initialize connects the backing services and builds the micro service.
func (a *App) Initialize(ctx context.Context) error {
	var lifecycles []interface{}

	repos, stopStorage, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	lifecycles = append(lifecycles, apt.LifecycleHooks{OnStop: stopStorage})

	rdb, err := a.openRedis(ctx)
	if err != nil {
		_ = stopStorage(context.Background())
		return err
	}

	var (
		carts    cart.Store
		numberer order.Numberer
		mutes    alert.MuteStore
	)
	if rdb != nil {
		carts = cart.NewRedisStore(rdb, a.settings.cartTTL)
		numberer = order.NewRedisNumberer(rdb)
		mutes = alert.NewRedisMuteStore(rdb)
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return rdb.Close() },
		})
	} else {
		a.logger.Info("redis not configured, carts and mute flags are kept in memory")
		carts = cart.NewMemoryStore()
		numberer = order.NewResumingNumberer(repos.Orders)
		mutes = alert.NewMemoryMuteStore()
	}

	hub := feed.NewHub(feed.DefaultBufferSize, a.logger)

	orderPublisher, tablePublisher, feedLifecycles, err := a.openFeed(hub)
	if err != nil {
		_ = stopStorage(context.Background())
		return err
	}
	lifecycles = append(lifecycles, feedLifecycles...)

	submitter := order.NewSubmitter(order.SubmitterDeps{
		Repos:     repos,
		Numberer:  numberer,
		Carts:     carts,
		Publisher: orderPublisher,
	}, a.logger)
	status := order.NewStatusService(repos.Orders, orderPublisher, a.logger)

	sinks, sinkLifecycles := a.openSinks()
	lifecycles = append(lifecycles, sinkLifecycles...)
	notifier := alert.NewNotifier(mutes, sinks, a.logger)

	registry := board.NewRegistry(board.Deps{
		Hub:    hub,
		Orders: status,
		Writer: status,
	}, repos.Restaurants, a.settings.board, a.logger)
	registry.AddObserver(notifier)

	orderHandler := order.NewHandler(order.HandlerDeps{
		Repos:     repos,
		Submitter: submitter,
		Status:    status,
		Publisher: tablePublisher,
	}, a.config, a.logger)
	cartHandler := cart.NewHandler(carts, order.NewMenuCatalog(repos.MenuItems, repos.Tables), a.logger)
	boardHandler := board.NewHandler(registry, a.logger)
	alertHandler := alert.NewHandler(mutes, a.logger)
	sseHandler := feed.NewSSEHandler(hub, a.logger)
	grpcServer := feed.NewGRPCServer(hub, a.logger)

	lifecycles = append(lifecycles,
		registry,
		apt.LifecycleHooks{OnStop: notifier.Stop},
		apt.LifecycleHooks{OnStop: func(context.Context) error {
			hub.Close()
			return nil
		}},
	)

	if a.settings.seedDemo {
		a.logger.Info("demo seeding enabled for order service")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: func(ctx context.Context) error {
				if err := seedDemo(ctx, repos, submitter, status, a.logger); err != nil {
					a.logger.Error("demo seeding failed (non-fatal)", "error", err)
				}
				return nil
			},
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", orderHandler, cartHandler, boardHandler, alertHandler, sseHandler),
		apt.WithGRPCServerModules("grpc.port", grpcServer),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

func (a *App) openStorage(ctx context.Context) (order.Repos, func(context.Context) error, error) {
	switch a.settings.dbDriver {
	case driverPostgres:
		db := postgres.NewDB(a.config, a.logger)
		if err := db.Start(ctx); err != nil {
			return order.Repos{}, nil, err
		}
		pool := db.Pool()
		return order.Repos{
			Orders:      postgres.NewOrderRepo(pool),
			Restaurants: postgres.NewRestaurantRepo(pool),
			Tables:      postgres.NewTableRepo(pool),
			MenuItems:   postgres.NewMenuItemRepo(pool),
		}, db.Stop, nil

	default:
		base := mongo.NewBaseRepo(a.config, a.logger)
		if err := base.Start(ctx); err != nil {
			return order.Repos{}, nil, err
		}
		db := base.GetDatabase()
		return order.Repos{
			Orders:      mongo.NewOrderRepo(db),
			Restaurants: mongo.NewRestaurantRepo(db),
			Tables:      mongo.NewTableRepo(db),
			MenuItems:   mongo.NewMenuItemRepo(db),
		}, base.Stop, nil
	}
}

// openRedis returns nil when no address is configured.
func (a *App) openRedis(ctx context.Context) (*redis.Client, error) {
	if a.settings.redisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.settings.redisAddr,
		Password: a.settings.redisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect to Redis at %s: %w", a.settings.redisAddr, err)
	}

	a.logger.Info("connected to Redis", "addr", a.settings.redisAddr)
	return rdb, nil
}

// openFeed chooses how order changes reach the hub. Without NATS the hub is
// the publisher itself; with NATS every instance publishes to the broker and
// a bridge feeds the broker back into its local hub. Table status events
// only exist on NATS.
func (a *App) openFeed(hub *feed.Hub) (orders, tables events.Publisher, lifecycles []interface{}, err error) {
	url := a.settings.natsURL
	if url == "" {
		a.logger.Info("NATS not configured, order events stay in process")
		return hub, nil, nil, nil
	}

	reconnect := feed.ResyncOnReconnect(hub, a.logger)

	tablePublisher, err := pkg.NewNATSPublisher(url)
	if err != nil {
		return nil, nil, nil, err
	}
	lifecycles = append(lifecycles, apt.LifecycleHooks{
		OnStop: func(context.Context) error { return tablePublisher.Close() },
	})

	if a.settings.streamEnabled {
		host, _ := os.Hostname()
		stream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
			URL:          url,
			StreamName:   "ORDER_EVENTS",
			Topic:        event.OrderChangesWildcard,
			ConsumerName: "order-feed-" + host,
			MaxAge:       24 * time.Hour,
		}, reconnect...)
		if err != nil {
			_ = tablePublisher.Close()
			return nil, nil, nil, err
		}
		stream.OnError = func(err error) {
			a.logger.Error("order stream handler failed", "error", err)
		}
		a.logger.Info("NATS stream initialized for order events")

		bridge := feed.NewBridge(hub, feed.StreamSource{Stream: stream}, a.logger)
		lifecycles = append(lifecycles, bridge, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return stream.Close() },
		})
		return stream, tablePublisher, lifecycles, nil
	}

	orderPublisher, err := pkg.NewNATSPublisher(url)
	if err != nil {
		_ = tablePublisher.Close()
		return nil, nil, nil, err
	}
	subscriber, err := pkg.NewNATSSubscriber(url, reconnect...)
	if err != nil {
		_ = tablePublisher.Close()
		_ = orderPublisher.Close()
		return nil, nil, nil, err
	}
	subscriber.OnError = func(topic string, err error) {
		a.logger.Error("order subscriber handler failed", "topic", topic, "error", err)
	}

	bridge := feed.NewBridge(hub, feed.SubjectSource{Subscriber: subscriber, Topic: event.OrderChangesWildcard}, a.logger)
	lifecycles = append(lifecycles,
		bridge,
		apt.LifecycleHooks{OnStop: func(context.Context) error { return orderPublisher.Close() }},
		apt.LifecycleHooks{OnStop: func(context.Context) error { return subscriber.Close() }},
	)
	return orderPublisher, tablePublisher, lifecycles, nil
}

// openSinks always logs alerts. The AMQP sink is optional and a broker
// that cannot be reached only disables it.
func (a *App) openSinks() ([]alert.Sink, []interface{}) {
	sinks := []alert.Sink{alert.NewLogSink(a.logger)}
	if a.settings.amqpURL == "" {
		return sinks, nil
	}

	amqpSink, err := alert.NewAMQPSink(a.settings.amqpURL)
	if err != nil {
		a.logger.Error("kitchen alerts will not reach devices", "error", err)
		return sinks, nil
	}
	a.logger.Info("kitchen alerts published to AMQP", "exchange", event.KitchenAlertsExchange)
	return append(sinks, amqpSink), []interface{}{
		apt.LifecycleHooks{OnStop: func(context.Context) error { return amqpSink.Close() }},
	}
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
