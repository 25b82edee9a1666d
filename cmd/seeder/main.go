// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/pkg/config"
	"github.com/amarachi/tillpoint-be/internal/pkg/logger"
)

type seedUser struct {
	name     string
	username string
	role     string
}

type seedProduct struct {
	name           string
	price          string
	quantity       int
	lowStockMargin int
}

var seedUsers = []seedUser{
	{"Adaeze Okafor", "adaeze", "SUPER_ADMIN"},
	{"Chinedu Eze", "chinedu", "MANAGER"},
	{"Ngozi Balogun", "ngozi", "CASHIER"},
	{"Tunde Adeyemi", "tunde", "CASHIER"},
	{"Amina Yusuf", "amina", "CASHIER"},
}

var seedProducts = []seedProduct{
	{"Bottled Water 75cl", "250.00", 200, 24},
	{"Peak Milk 170g", "320.00", 120, 12},
	{"Indomie Chicken 70g", "180.00", 300, 48},
	{"Golden Penny Semovita 1kg", "1250.00", 80, 10},
	{"Dangote Sugar 500g", "650.00", 90, 10},
	{"Milo Tin 400g", "2800.00", 40, 6},
	{"Dettol Soap 110g", "450.00", 150, 20},
	{"Coca-Cola 50cl", "300.00", 240, 36},
	{"Bread Loaf Large", "1100.00", 30, 8},
	{"Vegetable Oil 1L", "2400.00", 50, 6},
}

var paymentModes = []string{"CASH", "CARD", "BANK_TRANSFER"}

func main() {
	var (
		salesCount = flag.Int("sales", 0, "number of random sales to generate")
		clean      = flag.Bool("clean", false, "truncate tables before seeding")
	)
	flag.Parse()

	slogger := logger.SetupLogger("info", "text")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.GetDatabaseURL())
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if *clean {
		if err := truncate(ctx, pool); err != nil {
			slogger.Error("failed to truncate tables", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slogger.Info("tables truncated")
	}

	userIDs, err := insertUsers(ctx, pool)
	if err != nil {
		slogger.Error("failed to seed users", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("users seeded", slog.Int("count", len(userIDs)))

	productIDs, prices, err := insertProducts(ctx, pool)
	if err != nil {
		slogger.Error("failed to seed products", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("products seeded", slog.Int("count", len(productIDs)))

	if *salesCount > 0 {
		cashiers := cashierIDs(userIDs)
		created, err := insertSales(ctx, pool, cfg, cashiers, productIDs, prices, *salesCount)
		if err != nil {
			slogger.Error("failed to seed sales", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slogger.Info("sales seeded", slog.Int("count", created))
	}

	slogger.Info("seeding complete")
}

func truncate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`TRUNCATE audit_logs, sale_items, sales, products, users CASCADE`)
	return err
}

func insertUsers(ctx context.Context, pool *pgxpool.Pool) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(seedUsers))
	for _, u := range seedUsers {
		var id uuid.UUID
		err := pool.QueryRow(ctx,
			`INSERT INTO users (name, username, role)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (username) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			u.name, u.username, u.role).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert user %s: %w", u.username, err)
		}
		ids[u.role+":"+u.username] = id
	}
	return ids, nil
}

func insertProducts(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, map[uuid.UUID]decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(seedProducts))
	prices := make(map[uuid.UUID]decimal.Decimal, len(seedProducts))

	for _, p := range seedProducts {
		price := decimal.RequireFromString(p.price)
		var id uuid.UUID
		err := pool.QueryRow(ctx,
			`INSERT INTO products (name, price, quantity, low_stock_margin)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			p.name, price, p.quantity, p.lowStockMargin).Scan(&id)
		if err != nil {
			return nil, nil, fmt.Errorf("insert product %s: %w", p.name, err)
		}
		ids = append(ids, id)
		prices[id] = price
	}
	return ids, prices, nil
}

func cashierIDs(users map[string]uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for key, id := range users {
		if strings.HasPrefix(key, "CASHIER:") {
			ids = append(ids, id)
		}
	}
	return ids
}

// insertSales generates random historical sales over the past 30 days. Each
// sale decrements product stock the same way checkout does, so seeded data
// stays consistent with the quantity check constraint.
func insertSales(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config,
	cashiers []uuid.UUID, productIDs []uuid.UUID,
	prices map[uuid.UUID]decimal.Decimal, count int) (int, error) {

	if len(cashiers) == 0 || len(productIDs) == 0 {
		return 0, fmt.Errorf("cannot seed sales without cashiers and products")
	}

	vatRate := cfg.Sales.DefaultVatPercent
	created := 0

	type line struct {
		productID uuid.UUID
		quantity  int
		price     decimal.Decimal
	}

	for i := 0; i < count; i++ {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			saleID := uuid.New()
			cashier := cashiers[rand.Intn(len(cashiers))]
			createdAt := time.Now().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)

			lineCount := 1 + rand.Intn(3)
			subtotal := decimal.Zero

			picked := map[uuid.UUID]bool{}
			var lines []line

			for len(lines) < lineCount {
				productID := productIDs[rand.Intn(len(productIDs))]
				if picked[productID] {
					continue
				}
				picked[productID] = true
				lines = append(lines, line{
					productID: productID,
					quantity:  1 + rand.Intn(4),
					price:     prices[productID],
				})
			}

			for _, l := range lines {
				tag, err := tx.Exec(ctx,
					`UPDATE products SET quantity = quantity - $1, updated_at = NOW()
					 WHERE id = $2 AND quantity >= $1`,
					l.quantity, l.productID)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return fmt.Errorf("product %s out of stock", l.productID)
				}
				subtotal = subtotal.Add(l.price.Mul(decimal.NewFromInt(int64(l.quantity))))
			}

			vatAmount := subtotal.Mul(vatRate).Div(decimal.NewFromInt(100)).Round(4)
			total := subtotal.Add(vatAmount)
			mode := paymentModes[rand.Intn(len(paymentModes))]

			if _, err := tx.Exec(ctx,
				`INSERT INTO sales (id, cashier_id, subtotal, vat_amount, vat_percentage,
				                    total_amount, payment_mode, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
				saleID, cashier, subtotal, vatAmount, vatRate, total, mode, createdAt); err != nil {
				return err
			}

			for _, l := range lines {
				var name string
				if err := tx.QueryRow(ctx,
					`SELECT name FROM products WHERE id = $1`, l.productID).Scan(&name); err != nil {
					return err
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, price)
					 VALUES ($1, $2, $3, $4, $5, $6)`,
					uuid.New(), saleID, l.productID, name, l.quantity, l.price); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			// Out of stock products are expected late in a large seed run
			continue
		}
		created++
	}

	return created, nil
}
