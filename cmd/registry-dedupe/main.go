// registry-dedupe scans one import table for duplicate file-number groups
// and prints them, marking the keep row each group would retain.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joelkehle/registry-intake/internal/registry"
)

func main() {
	var (
		dbURL     = flag.String("db", "", "Database DSN: SQLite path or postgres:// URL (default: $DATABASE_URL, then registry.db)")
		table     = flag.String("table", "", "Table to scan (one of: "+strings.Join(registry.Tables, ", ")+")")
		partition = flag.String("partition", "", "Optional partition filter: TEST or PRODUCTION")
	)
	flag.Parse()

	if strings.TrimSpace(*table) == "" {
		log.Fatal("--table is required")
	}
	dsn := strings.TrimSpace(*dbURL)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	store, err := registry.Open(registry.Config{DatabaseURL: dsn})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	svc := registry.NewService(store)
	groups, err := svc.FindGroups(context.Background(), *table, *partition)
	if err != nil {
		log.Fatalf("find groups: %v", err)
	}

	if len(groups) == 0 {
		fmt.Printf("%s: no duplicate groups\n", *table)
		return
	}
	fmt.Printf("%s: %d duplicate group(s)\n", *table, len(groups))
	for _, g := range groups {
		fmt.Printf("\n%s  (key %s, %d rows)\n", g.DisplayValue, g.GroupKey, len(g.Records))
		for _, row := range g.Records {
			marker := "  "
			if row.Locked {
				marker = "* "
			}
			fmt.Printf("  %sid=%d file_number=%q property_id=%q tracking_id=%q %s updated=%s\n",
				marker, row.ID, row.FileNumber, row.PropertyID, row.TrackingID, row.TestControl, row.UpdatedAt)
		}
	}
}
