package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velora-labs/storefront-cache/pkg/cache"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestCacheMetricsRegistered(t *testing.T) {
	// exercising the store registers and moves the cache metric family
	store := cache.NewStore()
	store.Write(cache.ListKey("products", nil), []string{"x"}, cache.DefaultPolicy())

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	found := make(map[string]bool)
	for _, family := range families {
		found[family.GetName()] = true
	}

	for _, name := range []string{
		"storefront_cache_writes_total",
		"storefront_cache_entries",
	} {
		if !found[name] {
			t.Errorf("Metric %q is not registered", name)
		}
	}
}
