package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// derivedTables lists the derived relations children first, the order they are cleared in
var derivedTables = []string{"order_items", "orders", "products", "customers"}

// GormDimensionalRepository implements sales.DimensionalRepository using GORM
type GormDimensionalRepository struct {
	db *gorm.DB
}

// NewGormDimensionalRepository creates a new GormDimensionalRepository
func NewGormDimensionalRepository(db *gorm.DB) *GormDimensionalRepository {
	return &GormDimensionalRepository{db: db}
}

// Replace clears and repopulates customers, products, orders and order_items
// in a single transaction. Readers see either the previous contents or the new
// ones. Every failure rolls back and matches sales.ErrTransactionFailure.
func (r *GormDimensionalRepository) Replace(ctx context.Context, t *sales.Tables, opts sales.RebuildOptions) error {
	if t == nil {
		t = &sales.Tables{}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = sales.DefaultRebuildOptions().BatchSize
	}

	customers := make([]models.CustomerModel, len(t.Customers))
	for i, c := range t.Customers {
		customers[i] = models.CustomerModelFromDomain(c)
	}
	products := make([]models.ProductModel, len(t.Products))
	for i, p := range t.Products {
		products[i] = models.ProductModelFromDomain(p)
	}
	orders := make([]models.OrderModel, len(t.Orders))
	for i, o := range t.Orders {
		orders[i] = models.OrderModelFromDomain(o)
	}
	items := make([]models.OrderItemModel, len(t.OrderItems))
	for i, it := range t.OrderItems {
		items[i] = models.OrderItemModelFromDomain(it)
	}

	var txOpts []*sql.TxOptions
	if opts.Isolation != sql.LevelDefault {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: opts.Isolation})
	}

	tx := r.db.WithContext(ctx).Begin(txOpts...)
	if tx.Error != nil {
		return sales.NewTransactionError("begin", tx.Error)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if opts.LockTables && r.supportsTableLocks() {
		if err := tx.Exec(lockStatement()).Error; err != nil {
			return sales.NewTransactionError("lock", err)
		}
	}
	for _, table := range derivedTables {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return sales.NewTransactionError("clear "+table, err)
		}
	}
	if err := insert(tx, "customers", customers, opts.BatchSize); err != nil {
		return err
	}
	if err := insert(tx, "products", products, opts.BatchSize); err != nil {
		return err
	}
	if err := insert(tx, "orders", orders, opts.BatchSize); err != nil {
		return err
	}
	if err := insert(tx, "order_items", items, opts.BatchSize); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return sales.NewTransactionError("commit", err)
	}
	committed = true
	return nil
}

func insert[T any](tx *gorm.DB, table string, rows []T, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return sales.NewTransactionError("insert "+table, err)
	}
	return nil
}

func (r *GormDimensionalRepository) supportsTableLocks() bool {
	return r.db.Dialector.Name() == DriverPostgres
}

func lockStatement() string {
	stmt := "LOCK TABLE "
	for i, table := range derivedTables {
		if i > 0 {
			stmt += ", "
		}
		stmt += table
	}
	return stmt + " IN ACCESS EXCLUSIVE MODE"
}

// Load reads every derived relation ordered by primary key
func (r *GormDimensionalRepository) Load(ctx context.Context) (*sales.Tables, error) {
	db := r.db.WithContext(ctx)

	var customers []models.CustomerModel
	if err := db.Order("customer_id").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	var products []models.ProductModel
	if err := db.Order("product_id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	var orders []models.OrderModel
	if err := db.Order("order_id").Order("region").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	var items []models.OrderItemModel
	if err := db.Order("line_no").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	t := &sales.Tables{
		Customers:  make([]sales.Customer, len(customers)),
		Products:   make([]sales.Product, len(products)),
		Orders:     make([]sales.Order, len(orders)),
		OrderItems: make([]sales.OrderItem, len(items)),
	}
	for i := range customers {
		t.Customers[i] = customers[i].ToDomain()
	}
	for i := range products {
		t.Products[i] = products[i].ToDomain()
	}
	for i := range orders {
		t.Orders[i] = orders[i].ToDomain()
	}
	for i := range items {
		t.OrderItems[i] = items[i].ToDomain()
	}
	return t, nil
}

var (
	_ sales.StagingRepository     = (*GormStagingRepository)(nil)
	_ sales.DimensionalRepository = (*GormDimensionalRepository)(nil)
)
