package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/cors"

	"github.com/joelkehle/registry-intake/internal/httpapi"
	"github.com/joelkehle/registry-intake/internal/registry"
)

func main() {
	var (
		addr    = flag.String("addr", ":8085", "HTTP listen address")
		dbURL   = flag.String("db", "", "Database DSN: SQLite path or postgres:// URL (default: $DATABASE_URL, then registry.db)")
		origins = flag.String("cors-origins", "*", "Comma-separated allowed CORS origins for the upload UI")
	)
	flag.Parse()

	dsn := strings.TrimSpace(*dbURL)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	store, err := registry.Open(registry.Config{DatabaseURL: dsn})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	handler := httpapi.NewServer(registry.NewService(store))
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(*origins, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := &http.Server{Addr: *addr, Handler: corsHandler.Handler(handler)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("registry-intake listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
