//go:build integration

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("momo"),
		postgres.WithUsername("momo"),
		postgres.WithPassword("momo"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var pingErr error
	for i := 0; i < 10; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, pingErr, "database never became ready")

	require.NoError(t, Migrate(ctx, db))
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users (id, email) VALUES ('u1', 'buyer@example.com'), ('u2', '')`,
		`INSERT INTO products (id, seller_id, name, price, stock_quantity) VALUES ('p1', 's1', 'Basket', 500, 3)`,
		`INSERT INTO seller_profiles (user_id, total_earnings, pending_payout) VALUES ('s1', 100, 40)`,
		`INSERT INTO orders (id, user_id, seller_id, total_amount) VALUES ('o1', 'u1', 's1', 1000)`,
		`INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES ('o1', 'p1', 2, 500)`,
		`INSERT INTO cart (user_id, product_id, quantity) VALUES ('u1', 'p1', 1), ('u1', 'p1', 2)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func newTransaction(ref string) *models.Transaction {
	amount := decimal.NewFromInt(1000)
	fee, earnings := models.SplitAmount(amount)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Transaction{
		ID:             "tx-" + ref,
		OrderID:        "o1",
		UserID:         "u1",
		SellerID:       "s1",
		Amount:         amount,
		Currency:       "RWF",
		PaymentMethod:  models.PaymentMethodMoMo,
		Status:         models.StatusPending,
		PlatformFee:    fee,
		SellerEarnings: earnings,
		ReferenceID:    ref,
		ExternalID:     "o1",
		PhoneNumber:    "250788123456",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestTransactionRepository_Integration(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	tx := newTransaction("ref-1")
	require.NoError(t, repo.Create(ctx, tx))
	require.Error(t, repo.Create(ctx, &models.Transaction{
		ID: "tx-dup", OrderID: "o1", UserID: "u1", Amount: tx.Amount, Currency: "RWF",
		PaymentMethod: models.PaymentMethodMoMo, Status: models.StatusPending,
		PlatformFee: tx.PlatformFee, SellerEarnings: tx.SellerEarnings, ReferenceID: "ref-1",
	}), "reference ids are unique")

	t.Run("GetByReferenceID", func(t *testing.T) {
		got, err := repo.GetByReferenceID(ctx, "ref-1")
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, got.Status)
		require.True(t, got.PlatformFee.Equal(decimal.NewFromInt(50)))
		require.True(t, got.SellerEarnings.Equal(decimal.NewFromInt(950)))
		require.Nil(t, got.PaidAt)
		require.Nil(t, got.FanoutClaimedAt)

		_, err = repo.GetByReferenceID(ctx, "missing")
		require.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	t.Run("ApplyTransition is conditional", func(t *testing.T) {
		now := time.Now().UTC()
		update := models.TransitionUpdate{
			TransactionID: tx.ID,
			From:          models.StatusPending,
			To:            models.StatusSuccess,
			CallbackData:  json.RawMessage(`{"status":"SUCCESSFUL"}`),
			ExternalID:    "fin-1",
			PaidAt:        &now,
			ClaimFanout:   true,
			At:            now,
		}
		rows, err := repo.ApplyTransition(ctx, update)
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)

		rows, err = repo.ApplyTransition(ctx, update)
		require.NoError(t, err)
		require.Zero(t, rows)

		got, err := repo.GetByReferenceID(ctx, "ref-1")
		require.NoError(t, err)
		require.Equal(t, models.StatusSuccess, got.Status)
		require.Equal(t, "fin-1", got.ExternalID)
		require.NotNil(t, got.PaidAt)
		require.NotNil(t, got.FanoutClaimedAt)
		require.JSONEq(t, `{"status":"SUCCESSFUL"}`, string(got.CallbackData))

		rows, err = repo.ClaimFanout(ctx, tx.ID)
		require.NoError(t, err)
		require.Zero(t, rows)
	})

	t.Run("ClaimFanout once after unclaimed success", func(t *testing.T) {
		other := newTransaction("ref-2")
		require.NoError(t, repo.Create(ctx, other))
		_, err := repo.ApplyTransition(ctx, models.TransitionUpdate{
			TransactionID: other.ID, From: models.StatusPending, To: models.StatusSuccess, At: time.Now().UTC(),
		})
		require.NoError(t, err)

		first, err := repo.ClaimFanout(ctx, other.ID)
		require.NoError(t, err)
		second, err := repo.ClaimFanout(ctx, other.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, first)
		require.Zero(t, second)
	})

	t.Run("RefreshCallbackData", func(t *testing.T) {
		require.NoError(t, repo.RefreshCallbackData(ctx, tx.ID, json.RawMessage(`{"status":"FAILED"}`)))
		got, err := repo.GetByReferenceID(ctx, "ref-1")
		require.NoError(t, err)
		require.Equal(t, models.StatusSuccess, got.Status)
		require.JSONEq(t, `{"status":"FAILED"}`, string(got.CallbackData))
	})
}

func TestDomainStores_Integration(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()

	orders := NewOrderRepository(db)
	inventory := NewInventoryRepository(db)
	sellers := NewSellerRepository(db)
	users := NewUserRepository(db)

	t.Run("orders", func(t *testing.T) {
		order, err := orders.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, "s1", order.SellerID)
		require.Len(t, order.Items, 1)
		require.Equal(t, "Basket", order.Items[0].ProductName)
		require.Equal(t, 2, order.Items[0].Quantity)

		require.NoError(t, orders.MarkPaid(ctx, "o1", "tx-1"))
		order, err = orders.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, models.OrderStatusPaid, order.Status)
		require.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
		require.Equal(t, "tx-1", order.TransactionID)

		require.ErrorIs(t, orders.MarkPaid(ctx, "missing", "tx-1"), interfaces.ErrNotFound)
		_, err = orders.GetOrder(ctx, "missing")
		require.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	t.Run("cart", func(t *testing.T) {
		n, err := orders.ClearCart(ctx, "u1")
		require.NoError(t, err)
		require.EqualValues(t, 2, n)
	})

	t.Run("stock clamps at zero", func(t *testing.T) {
		left, err := inventory.DecrementStock(ctx, "p1", 2)
		require.NoError(t, err)
		require.Equal(t, 1, left)

		left, err = inventory.DecrementStock(ctx, "p1", 5)
		require.NoError(t, err)
		require.Zero(t, left)

		_, err = inventory.DecrementStock(ctx, "missing", 1)
		require.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	t.Run("earnings", func(t *testing.T) {
		require.NoError(t, sellers.IncrementEarnings(ctx, "s1", decimal.RequireFromString("950.50")))
		e, err := sellers.GetEarnings(ctx, "s1")
		require.NoError(t, err)
		require.True(t, e.TotalEarnings.Equal(decimal.RequireFromString("1050.50")))
		require.True(t, e.PendingPayout.Equal(decimal.RequireFromString("990.50")))

		require.ErrorIs(t, sellers.IncrementEarnings(ctx, "nobody", decimal.NewFromInt(1)), interfaces.ErrNotFound)
	})

	t.Run("user email", func(t *testing.T) {
		email, err := users.GetEmail(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, "buyer@example.com", email)

		_, err = users.GetEmail(ctx, "u2")
		require.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}
