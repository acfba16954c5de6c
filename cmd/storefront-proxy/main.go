// Command storefront-proxy is a caching read-through proxy for a storefront
// API: catalog reads are served from the cache layer, the cart is local and
// durable, and Prometheus metrics are exposed on /metrics.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/velora-labs/storefront-cache/pkg/api"
	"github.com/velora-labs/storefront-cache/pkg/cache"
	"github.com/velora-labs/storefront-cache/pkg/cart"
	"github.com/velora-labs/storefront-cache/pkg/catalog"
	"github.com/velora-labs/storefront-cache/pkg/logging"
	"github.com/velora-labs/storefront-cache/pkg/query"
)

func main() {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	client, err := api.New(api.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Tokens:  api.TokenFunc(func() string { return cfg.Upstream.Token }),
		OnUnauthorized: func() {
			logger.Warn().Msg("Upstream rejected credentials")
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	store := cache.NewStore()
	coordinator := query.New(store)

	products := api.NewResource[catalog.Product](client, "products")
	categories := api.NewResource[catalog.Category](client, "categories")
	brands := api.NewResource[catalog.Brand](client, "brands")

	storage, err := cartStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cart storage")
	}
	localCart := cart.New(context.Background(), storage, cfg.Cart.Namespace)

	// periodic GC of unsubscribed expired entries
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			store.GCSweep()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /catalog/products", listHandler(coordinator, catalog.TypeProduct, func(ctx context.Context, filters map[string]string) (any, error) {
		items, err := products.List(ctx, filters)
		return items, err
	}))
	mux.HandleFunc("GET /catalog/products/{id}", detailHandler(coordinator, catalog.TypeProduct, func(ctx context.Context, id string) (any, error) {
		return products.Get(ctx, id)
	}))
	mux.HandleFunc("GET /catalog/categories", listHandler(coordinator, catalog.TypeCategory, func(ctx context.Context, filters map[string]string) (any, error) {
		items, err := categories.List(ctx, filters)
		return items, err
	}))
	mux.HandleFunc("GET /catalog/brands", listHandler(coordinator, catalog.TypeBrand, func(ctx context.Context, filters map[string]string) (any, error) {
		items, err := brands.List(ctx, filters)
		return items, err
	}))

	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, localCart.Read())
	})
	mux.HandleFunc("POST /cart/items", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Product  catalog.Product `json:"product"`
			Quantity int             `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		summary, err := localCart.AddItem(r.Context(), payload.Product, payload.Quantity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
	mux.HandleFunc("PUT /cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		summary, err := localCart.SetQuantity(r.Context(), r.PathValue("id"), payload.Quantity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
	mux.HandleFunc("DELETE /cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		summary, err := localCart.RemoveItem(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	logger.Info().
		Str("addr", cfg.HTTP.Addr).
		Str("upstream", cfg.Upstream.BaseURL).
		Msg("Starting storefront proxy")

	if err := http.ListenAndServe(cfg.HTTP.Addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// cartStorage selects Redis-backed cart persistence when configured, file
// storage otherwise.
func cartStorage(cfg Config) (cart.Storage, error) {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Cart storage: Redis")
		return cart.NewRedisStorage(client), nil
	}
	log.Info().Str("dir", cfg.Cart.Dir).Msg("Cart storage: file")
	return cart.NewFileStorage(cfg.Cart.Dir)
}

type listFetcher func(ctx context.Context, filters map[string]string) (any, error)

func listHandler(coordinator *query.Coordinator, entityType string, fetch listFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := map[string]string{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				filters[key] = values[0]
			}
		}

		key := cache.ListKey(entityType, filters)
		result := coordinator.Query(r.Context(), key, func(ctx context.Context) (any, error) {
			return fetch(ctx, filters)
		})
		writeResult(w, result)
	}
}

func detailHandler(coordinator *query.Coordinator, entityType string, fetch func(ctx context.Context, id string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		key := cache.DetailKey(entityType, id)
		result := coordinator.Query(r.Context(), key, func(ctx context.Context) (any, error) {
			return fetch(ctx, id)
		})
		writeResult(w, result)
	}
}

// writeResult maps a coordinator result to an HTTP response. Stale data
// with an error is still served (stale-if-error) with a marker header.
func writeResult(w http.ResponseWriter, result query.Result) {
	if result.Err != nil && result.Value == nil {
		status := http.StatusBadGateway
		if api.KindOf(result.Err) == api.KindNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, result.Err.Error(), status)
		return
	}
	if result.Err != nil {
		w.Header().Set("X-Cache-Status", "stale-if-error")
	} else {
		w.Header().Set("X-Cache-Status", string(result.Status))
	}
	writeJSON(w, http.StatusOK, result.Value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
