// Package bulkorders imports many orders from tabular rows in one run. Rows
// sharing a group key form one order; every group is placed in its own
// savepoint so a failing group leaves no trace while the others commit.
package bulkorders

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/orders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/reports"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderPlacer interface {
	PlaceInTx(ctx context.Context, tx *gorm.DB, session *stock.Session, input orders.CreateOrderInput, source orders.Source) (*models.Order, error)
	RecordFailure(ctx context.Context, source orders.Source, err error)
	Ledger() *stock.Ledger
}

// ServiceParams configure the import service.
type ServiceParams struct {
	Orders   orderPlacer
	Products products.Store
	Tx       txRunner
	Reports  reports.Store
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type Service struct {
	orders   orderPlacer
	products products.Store
	tx       txRunner
	reports  reports.Store
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order placer required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("report store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		orders:   params.Orders,
		products: params.Products,
		tx:       params.Tx,
		reports:  params.Reports,
		metrics:  params.Metrics,
		logg:     logg,
		now:      now,
	}, nil
}

// Result summarises one import run.
type Result struct {
	Message       string   `json:"message"`
	OrdersCreated int      `json:"orders_created"`
	Errors        []string `json:"errors"`
	ReportID      string   `json:"error_report_id,omitempty"`
}

type failedRow struct {
	row     Row
	groupID string
	reason  string
}

// batch is the working state of one import run.
type batch struct {
	groups   map[string]*group
	order    []string
	failed   []failedRow
	accepted []string
}

func (b *batch) fail(row Row, groupID, reason string) {
	b.failed = append(b.failed, failedRow{row: row, groupID: groupID, reason: reason})
}

func (b *batch) failGroup(g *group, reason string) {
	for _, row := range g.rows {
		b.fail(row, g.id, reason)
	}
}

// Import validates headers, groups rows, and places one order per valid
// group. Row and group failures are reported in the result; only header
// problems and an empty batch are returned as errors.
func (s *Service) Import(ctx context.Context, headers []string, rows []Row) (*Result, error) {
	if err := checkHeaders(headers); err != nil {
		return nil, err
	}
	started := s.now()

	b := buildBatch(rows)
	valid := make([]*group, 0, len(b.order))
	for _, id := range b.order {
		if g := b.groups[id]; !g.failed() {
			valid = append(valid, g)
		}
	}
	if len(valid) == 0 && len(b.failed) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyBatch, "No valid order data found.")
	}

	importID := uuid.NewString()
	ctx = orders.WithImportID(s.logg.WithImportID(ctx, importID), importID)

	created, commitErr := s.placeGroups(ctx, b, valid)
	if commitErr != nil {
		reason := fmt.Sprintf("Database transaction failed: %s. No orders were created in this batch.", pkgerrors.MessageOf(commitErr))
		for _, id := range b.accepted {
			b.failGroup(b.groups[id], reason)
		}
		created = 0
		s.logg.Error(ctx, "order import rolled back", commitErr)
	}

	result := &Result{OrdersCreated: created, Errors: []string{}}
	sort.SliceStable(b.failed, func(i, j int) bool { return b.failed[i].row.Line < b.failed[j].row.Line })
	for _, f := range b.failed {
		result.Errors = append(result.Errors, fmt.Sprintf("Line %d (Group ID: %s): %s", f.row.Line, displayGroup(f.groupID), f.reason))
	}

	if len(b.failed) > 0 {
		report := reports.New(headers, toReportRows(b.failed), s.now())
		if err := s.reports.Save(ctx, report); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "report_id", report.ID), "store import report", err)
		} else {
			result.ReportID = report.ID
		}
	}
	result.Message = summary(created, len(b.failed))

	s.metrics.IncCreated(metrics.SourceBatch, created)
	s.metrics.ObserveImport(s.now().Sub(started), len(b.failed))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"orders_created": created,
		"failed_rows":    len(b.failed),
		"report_id":      result.ReportID,
	})
	s.logg.Info(logCtx, "order import finished")
	return result, nil
}

// buildBatch parses rows and groups them by key in order of first
// appearance. The first valid row of a group supplies its order fields.
func buildBatch(rows []Row) *batch {
	b := &batch{groups: make(map[string]*group)}
	for i, row := range rows {
		if row.Line <= 0 {
			row.Line = i + 2
		}
		groupID := row.get(ColGroupID)
		if groupID == "" {
			b.fail(row, "", "Missing 'order_group_id'.")
			continue
		}
		g, ok := b.groups[groupID]
		if !ok {
			g = &group{id: groupID}
			b.groups[groupID] = g
			b.order = append(b.order, groupID)
		}
		g.rows = append(g.rows, row)

		parsed, err := parseRow(row)
		if err != nil {
			g.badLines = append(g.badLines, row.Line)
			b.fail(row, groupID, pkgerrors.MessageOf(err))
			continue
		}
		if g.header == nil {
			header := parsed.header
			g.header = &header
		}
		g.items = append(g.items, parsed.item)
	}

	for _, id := range b.order {
		g := b.groups[id]
		if !g.failed() {
			continue
		}
		reason := fmt.Sprintf("Order not created: group has invalid data on line(s) %s.", joinLines(g.badLines))
		for _, row := range g.rows {
			if !slices.Contains(g.badLines, row.Line) {
				b.fail(row, g.id, reason)
			}
		}
	}
	return b
}

// placeGroups runs every valid group in one outer transaction, each inside
// its own savepoint, after locking the whole batch's products. It returns the number of committed orders, or the
// error that prevented the outer transaction from committing.
func (s *Service) placeGroups(ctx context.Context, b *batch, valid []*group) (int, error) {
	if len(valid) == 0 {
		return 0, nil
	}

	session := s.orders.Ledger().NewSession()
	defer session.Release()

	var (
		created   int
		groupErrs error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lockErr := db.WithSavepoint(tx, func(sp *gorm.DB) error {
			return s.lockBatch(ctx, sp, session, valid)
		})
		if lockErr != nil {
			reason := "Order creation failed: " + pkgerrors.MessageOf(lockErr)
			for _, g := range valid {
				s.orders.RecordFailure(s.logg.WithField(ctx, "group_id", g.id), orders.SourceBatch, lockErr)
				b.failGroup(g, reason)
			}
			return nil
		}
		for _, g := range valid {
			placeErr := db.WithSavepoint(tx, func(sp *gorm.DB) error {
				input, err := s.resolveGroup(ctx, sp, g)
				if err != nil {
					return err
				}
				_, err = s.orders.PlaceInTx(ctx, sp, session, input, orders.SourceBatch)
				return err
			})
			if placeErr != nil {
				groupErrs = multierr.Append(groupErrs, fmt.Errorf("group %s: %w", g.id, placeErr))
				s.orders.RecordFailure(s.logg.WithField(ctx, "group_id", g.id), orders.SourceBatch, placeErr)
				b.failGroup(g, "Order creation failed: "+pkgerrors.MessageOf(placeErr))
				continue
			}
			b.accepted = append(b.accepted, g.id)
			created++
		}
		return ctx.Err()
	})
	if groupErrs != nil {
		logCtx := s.logg.WithField(ctx, "failed_groups", len(multierr.Errors(groupErrs)))
		s.logg.Warn(logCtx, "order import groups rejected")
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, err.Error())
	}
	return created, nil
}

// lockBatch takes the stock locks of every product the batch touches, in
// ascending id order, before any group is placed. Groups then only re-enter
// locks the session already holds. Unknown SKUs are skipped here and fail
// their group later.
func (s *Service) lockBatch(ctx context.Context, tx *gorm.DB, session *stock.Session, valid []*group) error {
	store := s.products.WithTx(tx)
	seen := make(map[string]struct{})
	var ids []uuid.UUID
	for _, g := range valid {
		for _, item := range g.items {
			if _, ok := seen[item.sku]; ok {
				continue
			}
			seen[item.sku] = struct{}{}
			product, err := store.FindBySKU(ctx, item.sku)
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			ids = append(ids, product.ID)
		}
	}
	_, err := session.LockAll(ctx, tx, ids)
	return err
}

// resolveGroup turns a group's SKU lines into an order request.
func (s *Service) resolveGroup(ctx context.Context, tx *gorm.DB, g *group) (orders.CreateOrderInput, error) {
	input := *g.header
	input.Items = make([]orders.LineInput, 0, len(g.items))
	store := s.products.WithTx(tx)
	for _, item := range g.items {
		product, err := store.FindBySKU(ctx, item.sku)
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return input, pkgerrors.Newf(pkgerrors.CodeNotFound, "Item SKU '%s' (Line %d) not found.", item.sku, item.line)
		}
		if err != nil {
			return input, err
		}
		input.Items = append(input.Items, orders.LineInput{ProductID: product.ID, Quantity: item.quantity})
	}
	return input, nil
}

func summary(created, failedRows int) string {
	switch {
	case created > 0 && failedRows > 0:
		return fmt.Sprintf("%d order(s) created successfully. %d row(s) corresponding to failed orders had errors.", created, failedRows)
	case created > 0:
		return fmt.Sprintf("%d order(s) created successfully.", created)
	case failedRows > 0:
		return fmt.Sprintf("File processed, but %d row(s) had errors. No orders were created.", failedRows)
	default:
		return "File processed. No valid orders found or created."
	}
}

func toReportRows(failed []failedRow) []reports.FailedRow {
	out := make([]reports.FailedRow, 0, len(failed))
	for _, f := range failed {
		fields := make(map[string]string, len(f.row.Fields))
		for k, v := range f.row.Fields {
			fields[k] = v
		}
		out = append(out, reports.FailedRow{
			Line:    f.row.Line,
			GroupID: f.groupID,
			Fields:  fields,
			Reason:  f.reason,
		})
	}
	return out
}

func displayGroup(id string) string {
	if id == "" {
		return "N/A"
	}
	return id
}
