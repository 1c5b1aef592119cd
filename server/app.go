package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warden/config"
	"warden/internal/connections"
	"warden/internal/db"
	"warden/internal/health"
	"warden/internal/inventory"
	"warden/internal/ipam"
	"warden/internal/logs"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/syncer"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db        *gorm.DB
	scheduler *syncer.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	// 1) Логи
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	// 2) БД (опционально)
	if drv := a.cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, a.cfg.Database.DSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		a.db = d
	}

	// ---- DB migrations (only if DB is connected) ----
	if a.db != nil {
		if err := a.db.AutoMigrate(
			// inventory
			&models.Device{},
			&models.Library{},
			&models.Contact{},
			&models.User{},

			// sync engine
			&models.APIConnection{},
			&models.SyncHistory{},

			// ipam (prefixes & IPs)
			&models.Prefix{},
			&models.DeviceIP{},
		); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
		// уникальность натурального ключа среди живых записей
		if err := db.MigrateUniqueIndexes(a.db); err != nil {
			logs.Logger.Errorf("unique indexes migration: %v", err)
		}
	}

	// 3) Роутер + middleware
	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// 4) Health
	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db) // /healthz и /readyz
	} else {
		health.RegisterRoutes(a.Router) // только /healthz
	}

	// 5) Доменные HTTP-ручки + движок синка
	if a.db != nil {
		users := inventory.NewUserDirectory(a.db, a.cfg.Sync.SystemEmail)
		if err := users.EnsureSystemUser(); err != nil {
			logs.Logger.Errorf("ensure system user: %v", err)
		}

		connRepo := connections.NewRepo(a.db)
		recorder := syncer.NewRecorder(a.db)
		engine := syncer.NewEngine(
			connRepo,
			recorder,
			users,
			syncer.NewHTTPFetcher(a.cfg.Sync.FetchTimeout),
			syncer.NewDeviceReconciler(inventory.NewDeviceStore(a.db)),
			syncer.NewLibraryReconciler(inventory.NewLibraryStore(a.db)),
			syncer.NewContactReconciler(inventory.NewContactStore(a.db)),
		)
		a.scheduler = syncer.NewScheduler(engine, connRepo, a.cfg.Sync.TickInterval)

		connections.NewHTTP(connRepo).RegisterRoutes(a.Router)
		syncer.NewHTTP(engine, recorder).RegisterRoutes(a.Router)
		inventory.NewHTTP(a.db).RegisterRoutes(a.Router)

		ipamRepo := ipam.NewRepo(a.db)
		ipam.NewHTTP(ipamRepo).RegisterRoutes(a.Router)
	}

	a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ручной синк ходит во внешний API
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
