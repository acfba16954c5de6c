package query

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/velora-labs/storefront-cache/internal/testutil"
	"github.com/velora-labs/storefront-cache/pkg/api"
	"github.com/velora-labs/storefront-cache/pkg/cache"
	"github.com/velora-labs/storefront-cache/pkg/catalog"
)

func newTestGateway(t *testing.T, mock *testutil.MockAPI) *api.Client {
	t.Helper()
	client, err := api.New(api.Config{BaseURL: mock.URL()})
	if err != nil {
		t.Fatalf("api.New returned error: %v", err)
	}
	return client
}

func productFetcher(client *api.Client, filters map[string]string) Fetcher {
	products := api.NewResource[catalog.Product](client, "products")
	return func(ctx context.Context) (any, error) {
		return products.List(ctx, filters)
	}
}

func TestQuery_MissFetchesAndCaches(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewJSONResponse(
		`[{"id":"p1","name":"Keyboard","price":49.9}]`))

	coord := New(cache.NewStore())
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	result := coord.Query(context.Background(), key, fetch)
	if result.Status != StatusFresh {
		t.Fatalf("Status = %q, want fresh", result.Status)
	}
	products, ok := result.Value.([]catalog.Product)
	if !ok {
		t.Fatalf("Value type = %T, want []catalog.Product", result.Value)
	}
	if len(products) != 1 || products[0].ID != "p1" {
		t.Errorf("Value = %+v, want one product p1", products)
	}
	if entry, ok := coord.Store().Read(key); !ok || entry.Status != cache.StatusFresh {
		t.Error("Fetch result was not written to the cache")
	}
}

func TestQuery_FreshHitSkipsNetwork(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewJSONResponse(
		`[{"id":"p1","name":"Keyboard","price":49.9}]`))

	coord := New(cache.NewStore())
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	first := coord.Query(context.Background(), key, fetch)
	second := coord.Query(context.Background(), key, fetch)

	if count := mock.PathCount("/products"); count != 1 {
		t.Errorf("Server saw %d requests, want 1", count)
	}
	if second.Status != StatusFresh {
		t.Errorf("Second read status = %q, want fresh", second.Status)
	}

	// repeated reads within the freshness window observe the identical
	// store-owned reference
	p1 := reflect.ValueOf(first.Value).Pointer()
	p2 := reflect.ValueOf(second.Value).Pointer()
	if p1 != p2 {
		t.Error("Consecutive fresh reads returned different value references")
	}
}

func TestQuery_ConcurrentReadersShareOneFetch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	release := make(chan struct{})
	mock.SetHandler("/products", func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte(`[{"id":"p1","name":"Keyboard","price":49.9}]`))
	})

	coord := New(cache.NewStore())
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	const readers = 8
	results := make([]Result, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = coord.Query(context.Background(), key, fetch)
		}(i)
	}

	// let all readers attach to the flight before the server answers
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if count := mock.PathCount("/products"); count != 1 {
		t.Errorf("Server saw %d requests for %d concurrent readers, want 1", count, readers)
	}
	for i, result := range results {
		if result.Status != StatusFresh {
			t.Errorf("reader %d status = %q, want fresh", i, result.Status)
		}
	}
}

func TestQuery_StaleServesThenRevalidates(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewJSONResponse(
		`[{"id":"p1","name":"Keyboard","price":39.9}]`))

	store := cache.NewStore()
	coord := New(store)
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	store.Write(key, []catalog.Product{{ID: "p1", Name: "Keyboard", Price: 49.9}}, cache.DefaultPolicy())
	store.Invalidate(cache.TypePrefix(catalog.TypeProduct))

	result := coord.Query(context.Background(), key, fetch)
	if result.Status != StatusStaleRevalidating {
		t.Fatalf("Status = %q, want stale-revalidating", result.Status)
	}
	stale := result.Value.([]catalog.Product)
	if stale[0].Price != 49.9 {
		t.Errorf("Served value = %+v, want the stale price 49.9", stale[0])
	}

	waitForFresh(t, store, key)
	entry, _ := store.Read(key)
	refreshed := entry.Value.([]catalog.Product)
	if refreshed[0].Price != 39.9 {
		t.Errorf("Revalidated value = %+v, want price 39.9", refreshed[0])
	}
}

func TestQuery_StaleIfError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewServerErrorResponse())

	store := cache.NewStore()
	coord := New(store)
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	store.Write(key, []catalog.Product{{ID: "p1", Name: "Keyboard"}}, cache.DefaultPolicy())
	store.Invalidate(cache.TypePrefix(catalog.TypeProduct))

	// stale read kicks off the background refresh, which will fail
	coord.Query(context.Background(), key, fetch)
	waitForStatus(t, store, key, cache.StatusError)

	result := coord.Query(context.Background(), key, fetch)
	if result.Status != StatusError {
		t.Fatalf("Status = %q, want error", result.Status)
	}
	if result.Err == nil {
		t.Error("Error result carries no error")
	}
	if result.Value == nil {
		t.Error("Last good value was not served alongside the error")
	}
}

func TestQuery_ErrorEntryRefetchesOnRead(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/products", testutil.FlakyHandler(1,
		`[{"id":"p1","name":"Keyboard","price":39.9}]`))

	store := cache.NewStore()
	coord := New(store)
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	store.Write(key, []catalog.Product{{ID: "p1", Name: "Keyboard", Price: 49.9}}, cache.DefaultPolicy())
	store.Invalidate(cache.TypePrefix(catalog.TypeProduct))

	// the stale read triggers a background refresh that fails
	coord.Query(context.Background(), key, fetch)
	waitForStatus(t, store, key, cache.StatusError)

	// the origin has recovered; reading the errored entry serves the last
	// good value and refreshes in the background
	result := coord.Query(context.Background(), key, fetch)
	if result.Status != StatusError {
		t.Fatalf("Status = %q, want error", result.Status)
	}
	if result.Value.([]catalog.Product)[0].Price != 49.9 {
		t.Errorf("Served value = %+v, want the pre-failure price 49.9", result.Value)
	}

	waitForFresh(t, store, key)
	entry, _ := store.Read(key)
	if got := entry.Value.([]catalog.Product)[0].Price; got != 39.9 {
		t.Errorf("Healed value price = %v, want 39.9", got)
	}
	if count := mock.PathCount("/products"); count != 2 {
		t.Errorf("Server saw %d requests, want 2 (one failed, one recovery)", count)
	}

	// the healed entry is a plain fresh hit again
	if result := coord.Query(context.Background(), key, fetch); result.Status != StatusFresh {
		t.Errorf("Post-recovery status = %q, want fresh", result.Status)
	}
}

func TestQuery_ErrorWithoutPriorData(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewServerErrorResponse())

	coord := New(cache.NewStore())
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	result := coord.Query(context.Background(), key, fetch)
	if result.Status != StatusError {
		t.Fatalf("Status = %q, want error", result.Status)
	}
	if result.Value != nil {
		t.Errorf("Value = %v, want nil when no prior data exists", result.Value)
	}
	if api.KindOf(result.Err) != api.KindServer {
		t.Errorf("Error kind = %q, want server", api.KindOf(result.Err))
	}
}

func TestQuery_CancelledWaiterDoesNotAbortFetch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	release := make(chan struct{})
	mock.SetHandler("/products", func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte(`[{"id":"p1","name":"Keyboard","price":49.9}]`))
	})

	store := cache.NewStore()
	coord := New(store)
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- coord.Query(ctx, key, fetch) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	result := <-done
	if result.Status != StatusLoading {
		t.Errorf("Cancelled read status = %q, want loading", result.Status)
	}

	// the shared fetch still completes and lands in the cache
	close(release)
	waitForFresh(t, store, key)
}

func TestRefetch_ForcesNetworkOnFreshEntry(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewJSONResponse(
		`[{"id":"p1","name":"Keyboard","price":49.9}]`))

	coord := New(cache.NewStore())
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	coord.Query(context.Background(), key, fetch)
	result := coord.Refetch(context.Background(), key, fetch)

	if count := mock.PathCount("/products"); count != 2 {
		t.Errorf("Server saw %d requests, want 2", count)
	}
	if result.Status != StatusFresh {
		t.Errorf("Refetch status = %q, want fresh", result.Status)
	}
}

func TestRevalidate_Background(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/products", testutil.NewJSONResponse(
		`[{"id":"p1","name":"Keyboard","price":49.9}]`))

	store := cache.NewStore()
	coord := New(store)
	key := cache.ListKey(catalog.TypeProduct, nil)
	fetch := productFetcher(newTestGateway(t, mock), nil)

	coord.Revalidate(context.Background(), key, fetch)
	waitForFresh(t, store, key)

	if count := mock.PathCount("/products"); count != 1 {
		t.Errorf("Server saw %d requests, want 1", count)
	}
}

func waitForFresh(t *testing.T, store *cache.Store, key cache.Key) {
	t.Helper()
	waitForStatus(t, store, key, cache.StatusFresh)
}

func waitForStatus(t *testing.T, store *cache.Store, key cache.Key, want cache.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := store.Read(key); ok && entry.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Entry %q never reached status %q", key, want)
}
