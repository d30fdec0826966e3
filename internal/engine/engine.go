// Package engine assembles the order engine from configuration: storage,
// stock ledger, order and import services, and the import report store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/bulkorders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/orders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/reports"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/settings"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/config"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/metrics"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/migrate"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/outbox"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/pagination"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/redis"
)

var errClosed = errors.New("engine is closed")

// Engine is the assembled order engine.
type Engine struct {
	logg     *logger.Logger
	db       *db.Client
	redis    *redis.Client
	registry *prometheus.Registry

	products *products.Repository
	catalog  *products.ReadService
	settings *settings.Repository
	orders   *orders.Service
	imports  *bulkorders.Service
	reports  reports.Store

	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
}

// New connects to the configured datastores and wires every service.
// On sqlite the schema is created from the models; Postgres schemas are
// owned by the goose migrations.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	e := &Engine{logg: logg, db: dbClient, registry: prometheus.NewRegistry()}

	if err := e.prepareSchema(ctx, cfg); err != nil {
		return nil, multierr.Append(err, e.Close())
	}
	if err := e.wire(ctx, cfg); err != nil {
		return nil, multierr.Append(err, e.Close())
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"driver":         cfg.DB.Driver,
		"reports":        cfg.Reports.Backend,
		"lock_timeout":   cfg.Orders.LockTimeout.String(),
		"stock_low_mark": cfg.Orders.LowStockThreshold,
	}), "order engine ready")
	return e, nil
}

func (e *Engine) prepareSchema(ctx context.Context, cfg *config.Config) error {
	if cfg.DB.IsSQLite() {
		if err := e.db.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("creating sqlite schema: %w", err)
		}
		return nil
	}
	return migrate.MaybeRunDev(ctx, cfg, e.logg, e.db)
}

func (e *Engine) wire(ctx context.Context, cfg *config.Config) error {
	conn := e.db.DB()
	e.products = products.NewRepository(conn)
	e.settings = settings.NewRepository(conn)
	e.catalog = products.NewReadService(e.products, e.settings, cfg.Orders.LowStockThreshold)

	ledger, err := stock.NewLedger(e.products, cfg.Orders.LockTimeout, e.logg)
	if err != nil {
		return err
	}
	orderMetrics := metrics.NewOrderMetrics(e.registry)

	e.orders, err = orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Products: e.products,
		Tx:       e.db,
		Ledger:   ledger,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), e.logg),
		Metrics:  orderMetrics,
		Logger:   e.logg,
		LockWait: cfg.Orders.LockTimeout,
	})
	if err != nil {
		return fmt.Errorf("order service: %w", err)
	}

	e.reports, err = e.reportStore(ctx, cfg)
	if err != nil {
		return err
	}

	e.imports, err = bulkorders.NewService(bulkorders.ServiceParams{
		Orders:   e.orders,
		Products: e.products,
		Tx:       e.db,
		Reports:  e.reports,
		Metrics:  orderMetrics,
		Logger:   e.logg,
	})
	if err != nil {
		return fmt.Errorf("import service: %w", err)
	}
	return nil
}

func (e *Engine) reportStore(ctx context.Context, cfg *config.Config) (reports.Store, error) {
	if cfg.Reports.Backend == config.ReportsBackendRedis {
		client, err := redis.New(ctx, cfg.Redis, e.logg)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		e.redis = client
		return reports.NewRedisStore(client, cfg.Reports.TTL)
	}

	store := reports.NewMemoryStore(cfg.Reports.TTL, reports.WithLogger(e.logg))
	if cfg.Reports.SweepInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		e.stopSweeper = cancel
		e.sweeperDone = make(chan struct{})
		go func() {
			defer close(e.sweeperDone)
			store.RunSweeper(sweepCtx, cfg.Reports.SweepInterval)
		}()
	}
	return store, nil
}

// Registry exposes the engine's metrics for scraping.
func (e *Engine) Registry() prometheus.Gatherer {
	return e.registry
}

// Ping checks every datastore the engine depends on.
func (e *Engine) Ping(ctx context.Context) error {
	if e.db == nil {
		return errClosed
	}
	err := e.db.Ping(ctx)
	if e.redis != nil {
		err = multierr.Append(err, e.redis.Ping(ctx))
	}
	return err
}

// Close stops background work and releases connections.
func (e *Engine) Close() error {
	if e.stopSweeper != nil {
		e.stopSweeper()
		<-e.sweeperDone
		e.stopSweeper = nil
	}
	var err error
	if e.redis != nil {
		err = multierr.Append(err, e.redis.Close())
		e.redis = nil
	}
	if e.db != nil {
		err = multierr.Append(err, e.db.Close())
		e.db = nil
	}
	return err
}

func (e *Engine) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return e.orders.CreateOrder(ctx, input)
}

func (e *Engine) UpdateOrder(ctx context.Context, id uuid.UUID, input orders.UpdateOrderInput) (*models.Order, error) {
	return e.orders.UpdateOrder(ctx, id, input)
}

func (e *Engine) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	return e.orders.UpdateOrderStatus(ctx, id, status)
}

func (e *Engine) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return e.orders.GetOrder(ctx, id)
}

func (e *Engine) ListOrders(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error) {
	return e.orders.ListOrders(ctx, params)
}

// ExportOrdersCSV writes every order, newest first, in the import layout
// extended with totals and statuses.
func (e *Engine) ExportOrdersCSV(ctx context.Context, w io.Writer) error {
	var all []models.Order
	params := pagination.Params{Limit: pagination.MaxLimit}
	for {
		page, err := e.orders.ListOrders(ctx, params)
		if err != nil {
			return err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	return bulkorders.WriteExportCSV(w, all)
}

// WriteImportTemplate writes the header row of an import file.
func (e *Engine) WriteImportTemplate(w io.Writer) error {
	return bulkorders.WriteTemplate(w)
}

// ImportOrders places every group of already parsed rows.
func (e *Engine) ImportOrders(ctx context.Context, headers []string, rows []bulkorders.Row) (*bulkorders.Result, error) {
	return e.imports.Import(ctx, headers, rows)
}

// ImportCSV reads an import file and places its groups.
func (e *Engine) ImportCSV(ctx context.Context, r io.Reader) (*bulkorders.Result, error) {
	headers, rows, err := bulkorders.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return e.imports.Import(ctx, headers, rows)
}

func (e *Engine) GetImportReport(ctx context.Context, id string) (*reports.Report, error) {
	return e.reports.Get(ctx, id)
}

// WriteImportReport streams a stored import report as CSV.
func (e *Engine) WriteImportReport(ctx context.Context, id string, w io.Writer) error {
	report, err := e.reports.Get(ctx, id)
	if err != nil {
		return err
	}
	return report.WriteCSV(w)
}

func (e *Engine) GetProduct(ctx context.Context, id uuid.UUID) (*products.View, error) {
	return e.catalog.Get(ctx, id)
}

func (e *Engine) ListProducts(ctx context.Context, params pagination.Params) (*pagination.Page[products.View], error) {
	return e.catalog.List(ctx, params)
}

// UpsertProduct creates or replaces a product by SKU. It reports whether a
// new row was inserted.
func (e *Engine) UpsertProduct(ctx context.Context, product *models.Product) (bool, error) {
	return e.products.UpsertBySKU(ctx, product)
}

// SetLowStockThreshold persists the threshold used by product reads.
func (e *Engine) SetLowStockThreshold(ctx context.Context, threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative")
	}
	return e.settings.Set(ctx, settings.KeyLowStockThreshold, fmt.Sprint(threshold))
}
