package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/schoolshop/internal/model"
)

// newTestRepository поднимает PostgreSQL в контейнере и применяет миграции.
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("schoolshop_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func resetTables(t *testing.T, r *PostgresRepository) {
	t.Helper()
	_, err := r.pool.Exec(context.Background(), `TRUNCATE order_items, orders, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func seedProduct(t *testing.T, r *PostgresRepository, name string, category model.Category, stock int) *model.Product {
	t.Helper()
	p, err := r.CreateProduct(context.Background(), model.Product{
		Name:     name,
		Category: category,
		Price:    decimal.RequireFromString("2500.00"),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func newOrder(createdAt time.Time, items ...model.OrderItem) *model.Order {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	fee := decimal.RequireFromString("400.00")
	return &model.Order{
		ID:           uuid.New(),
		CustomerName: "Amine Belkacem",
		Phone:        "0550123456",
		WilayaCode:   16,
		WilayaName:   "Alger",
		Commune:      "Bab Ezzouar",
		Address:      "Cité 5 Juillet",
		Items:        items,
		Subtotal:     subtotal,
		ShippingFee:  fee,
		GrandTotal:   subtotal.Add(fee),
		Status:       model.OrderStatusPending,
		DeliveryType: model.DeliveryHome,
		CreatedAt:    createdAt,
	}
}

func lineOf(p *model.Product, qty int) model.OrderItem {
	id := p.ID
	return model.OrderItem{ProductID: &id, ProductName: p.Name, Quantity: qty, UnitPrice: p.Price}
}

func TestPostgresRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	t.Run("create order updates counters", func(t *testing.T) {
		resetTables(t, repo)
		bag := seedProduct(t, repo, "Cartable", model.CategoryPrimary, 10)
		pens := seedProduct(t, repo, "Stylos", model.CategoryMiddle, 5)

		stored, err := repo.CreateOrder(ctx, newOrder(time.Time{}, lineOf(bag, 3), lineOf(pens, 5)))
		require.NoError(t, err)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.WithinDuration(t, time.Now(), stored.CreatedAt, time.Minute)

		got, err := repo.GetProduct(ctx, bag.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)
		assert.Equal(t, 3, got.Sales)

		got, err = repo.GetProduct(ctx, pens.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
		assert.Equal(t, 5, got.Sales)

		loaded, err := repo.GetOrder(ctx, stored.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Items, 2)
		assert.Equal(t, "Cartable", loaded.Items[0].ProductName)
		assert.Equal(t, "Stylos", loaded.Items[1].ProductName)
		assert.True(t, loaded.GrandTotal.Equal(decimal.RequireFromString("20400")))
		assert.Equal(t, model.OrderStatusPending, loaded.Status)
	})

	t.Run("create order keeps given created_at", func(t *testing.T) {
		resetTables(t, repo)
		at := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)

		stored, err := repo.CreateOrder(ctx, newOrder(at, model.OrderItem{ProductName: "Gomme", Quantity: 1, UnitPrice: decimal.RequireFromString("50")}))
		require.NoError(t, err)
		assert.True(t, stored.CreatedAt.Equal(at))
	})

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		resetTables(t, repo)
		bag := seedProduct(t, repo, "Cartable", model.CategoryPrimary, 10)
		pens := seedProduct(t, repo, "Stylos", model.CategoryMiddle, 1)

		order := newOrder(time.Time{}, lineOf(bag, 2), lineOf(pens, 2))
		_, err := repo.CreateOrder(ctx, order)
		require.ErrorIs(t, err, ErrInsufficientStock)

		_, err = repo.GetOrder(ctx, order.ID)
		assert.ErrorIs(t, err, ErrOrderNotFound)

		got, err := repo.GetProduct(ctx, bag.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Stock)
		assert.Equal(t, 0, got.Sales)
	})

	t.Run("list orders newest first with filters", func(t *testing.T) {
		resetTables(t, repo)
		base := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
		item := model.OrderItem{ProductName: "Gomme", Quantity: 1, UnitPrice: decimal.RequireFromString("50")}

		var ids []uuid.UUID
		for i := range 3 {
			o, err := repo.CreateOrder(ctx, newOrder(base.Add(time.Duration(i)*time.Hour), item))
			require.NoError(t, err)
			ids = append(ids, o.ID)
		}
		_, err := repo.UpdateOrderStatus(ctx, ids[0], model.OrderStatusConfirmed)
		require.NoError(t, err)

		all, err := repo.ListOrders(ctx, OrderFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, ids[2], all[0].ID)
		assert.Equal(t, ids[0], all[2].ID)
		require.Len(t, all[0].Items, 1)

		confirmed, err := repo.ListOrders(ctx, OrderFilter{Status: model.OrderStatusConfirmed})
		require.NoError(t, err)
		require.Len(t, confirmed, 1)
		assert.Equal(t, ids[0], confirmed[0].ID)

		limited, err := repo.ListOrders(ctx, OrderFilter{Status: model.OrderStatusPending, Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, ids[2], limited[0].ID)

		none, err := repo.ListOrders(ctx, OrderFilter{Status: model.OrderStatusDelivered})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update order status", func(t *testing.T) {
		resetTables(t, repo)
		o, err := repo.CreateOrder(ctx, newOrder(time.Time{}, model.OrderItem{ProductName: "Gomme", Quantity: 1, UnitPrice: decimal.RequireFromString("50")}))
		require.NoError(t, err)

		updated, err := repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
		require.Len(t, updated.Items, 1)

		_, err = repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusDelivered)
		var transitionErr *model.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, model.OrderStatusConfirmed, transitionErr.From)

		loaded, err := repo.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusConfirmed, loaded.Status)

		_, err = repo.UpdateOrderStatus(ctx, uuid.New(), model.OrderStatusConfirmed)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("deleted product keeps order lines", func(t *testing.T) {
		resetTables(t, repo)
		bag := seedProduct(t, repo, "Cartable", model.CategoryPrimary, 10)

		o, err := repo.CreateOrder(ctx, newOrder(time.Time{}, lineOf(bag, 1)))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteProduct(ctx, bag.ID))
		assert.ErrorIs(t, repo.DeleteProduct(ctx, bag.ID), ErrProductNotFound)

		loaded, err := repo.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Items, 1)
		assert.Nil(t, loaded.Items[0].ProductID)
		assert.Equal(t, "Cartable", loaded.Items[0].ProductName)
	})

	t.Run("products", func(t *testing.T) {
		resetTables(t, repo)
		bag := seedProduct(t, repo, "Cartable", model.CategoryPrimary, 10)
		seedProduct(t, repo, "Stylos", model.CategoryMiddle, 5)

		all, err := repo.ListProducts(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.NotNil(t, all[0].Images)

		primary, err := repo.ListProducts(ctx, model.CategoryPrimary)
		require.NoError(t, err)
		require.Len(t, primary, 1)
		assert.Equal(t, bag.ID, primary[0].ID)

		byID, err := repo.GetProductsByIDs(ctx, []int64{bag.ID, 999})
		require.NoError(t, err)
		assert.Len(t, byID, 1)

		bag.Stock = 3
		bag.Images = []string{"/img/cartable.png"}
		require.NoError(t, repo.UpdateProduct(ctx, *bag))
		got, err := repo.GetProduct(ctx, bag.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
		assert.Equal(t, []string{"/img/cartable.png"}, got.Images)

		assert.ErrorIs(t, repo.UpdateProduct(ctx, model.Product{ID: 999, Name: "x", Category: model.CategoryPrimary}), ErrProductNotFound)

		_, err = repo.GetProduct(ctx, 999)
		assert.ErrorIs(t, err, ErrProductNotFound)

		_, err = repo.CreateProduct(ctx, model.Product{Name: "x", Category: "university", Price: decimal.Zero})
		assert.ErrorIs(t, err, ErrConstraint)
	})
}
