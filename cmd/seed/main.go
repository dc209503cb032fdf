// merenda-go/cmd/seed/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the ledger database with contract fixtures",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:  "contracts",
				Usage: "Seed suppliers and their contract items from CSV fixtures",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing suppliers.csv and contract_items.csv",
						Value:   "./data/seeds/contracts",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Action: runSeeder,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSeeder(c *cli.Context) error {
	dbURL := c.String("db-url")
	dataDir := c.String("data-dir")

	// Initialize database connection
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	ctx := context.Background()

	// Start a transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer a rollback in case anything fails.
	defer tx.Rollback()

	log.Println("Starting database seeding...")

	supplierIDs, err := seedSuppliers(ctx, tx, filepath.Join(dataDir, "suppliers.csv"))
	if err != nil {
		return fmt.Errorf("failed to seed suppliers: %w", err)
	}

	if err := seedContractItems(ctx, tx, supplierIDs, filepath.Join(dataDir, "contract_items.csv")); err != nil {
		return fmt.Errorf("failed to seed contract items: %w", err)
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// seedSuppliers reads suppliers.csv (name, contract) and returns a name-to-id
// map for the contract item pass.
func seedSuppliers(ctx context.Context, tx *sql.Tx, filePath string) (map[string]int64, error) {
	log.Printf("Seeding suppliers from %s\n", filePath)

	rows, err := readCSV(filePath, []string{"name", "contract"})
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO suppliers (name, contract, created_at)
			VALUES ($1, $2, NOW())
			RETURNING id
		`, row["name"], row["contract"]).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert supplier %q: %w", row["name"], err)
		}
		ids[row["name"]] = id
	}

	log.Printf("Seeded %d suppliers\n", len(ids))
	return ids, nil
}

// seedContractItems reads contract_items.csv
// (supplier, name, quantity, unit_kind, unit_factor, unit_price).
func seedContractItems(ctx context.Context, tx *sql.Tx, supplierIDs map[string]int64, filePath string) error {
	log.Printf("Seeding contract items from %s\n", filePath)

	rows, err := readCSV(filePath, []string{"supplier", "name", "quantity", "unit_kind", "unit_factor", "unit_price"})
	if err != nil {
		return err
	}

	positions := make(map[int64]int)
	for _, row := range rows {
		supplierID, ok := supplierIDs[row["supplier"]]
		if !ok {
			return fmt.Errorf("contract item %q references unknown supplier %q", row["name"], row["supplier"])
		}

		quantity, err := strconv.ParseFloat(row["quantity"], 64)
		if err != nil {
			return fmt.Errorf("invalid quantity for %q: %w", row["name"], err)
		}
		factor := 1.0
		if row["unit_factor"] != "" {
			if factor, err = strconv.ParseFloat(row["unit_factor"], 64); err != nil {
				return fmt.Errorf("invalid unit factor for %q: %w", row["name"], err)
			}
		}
		price := "0"
		if row["unit_price"] != "" {
			price = row["unit_price"]
		}

		position := positions[supplierID]
		positions[supplierID] = position + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO contract_items (supplier_id, name, quantity, unit_kind, unit_factor, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, supplierID, row["name"], quantity, row["unit_kind"], factor, price, position)
		if err != nil {
			return fmt.Errorf("failed to insert contract item %q: %w", row["name"], err)
		}
	}

	log.Printf("Seeded %d contract items\n", len(rows))
	return nil
}

// readCSV loads a CSV file into header-keyed rows, verifying the expected
// columns are present.
func readCSV(filePath string, required []string) ([]map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s is missing required column %q", filePath, col)
		}
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		row := make(map[string]string, len(required))
		for _, col := range required {
			i := index[col]
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
