package cache

import (
	"fmt"
	"math/rand"
	"testing"
)

// BenchmarkCacheGet benchmarks cache Get operations.
func BenchmarkCacheGet(b *testing.B) {
	cache, err := NewLRU[string](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	// Pre-populate cache
	for i := 0; i < 1000; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key%d", rand.Intn(1000))
			cache.Get(key)
		}
	})
}

// BenchmarkCacheSet benchmarks cache Set operations.
func BenchmarkCacheSet(b *testing.B) {
	cache, err := NewLRU[string](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key%d", i)
			value := fmt.Sprintf("value%d", i)
			_, _ = cache.Set(key, value)
			i++
		}
	})
}

// BenchmarkCacheMixed benchmarks mixed cache operations (Get/Set/Delete).
func BenchmarkCacheMixed(b *testing.B) {
	cache, err := NewLRU[string](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	// Pre-populate cache
	for i := 0; i < 500; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 500
		for pb.Next() {
			switch rand.Intn(5) {
			case 0, 1: // 40% reads
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				cache.Get(key)
			case 2, 3: // 40% writes
				key := fmt.Sprintf("key%d", i)
				value := fmt.Sprintf("value%d", i)
				_, _ = cache.Set(key, value)
				i++
			case 4: // 20% deletes
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				_, _ = cache.Delete(key)
			}
		}
	})
}

// BenchmarkLRUEviction benchmarks LRU eviction performance.
func BenchmarkLRUEviction(b *testing.B) {
	sizes := []int{100, 500, 1000, 5000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size_%d", size), func(b *testing.B) {
			cache, err := NewLRU[string](size)
			if err != nil {
				b.Fatal(err)
			}
			defer cache.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				key := fmt.Sprintf("key%d", i)
				value := fmt.Sprintf("value%d", i)
				_, _ = cache.Set(key, value)
			}
		})
	}
}

// BenchmarkExample_ReadHeavy simulates a read-heavy workload (90% reads, 10% writes).
func BenchmarkExample_ReadHeavy(b *testing.B) {
	cache, err := NewLRU[string](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	// Pre-populate
	for i := 0; i < 1000; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if rand.Intn(10) == 0 { // 10% writes
				key := fmt.Sprintf("key%d", rand.Intn(2000))
				_, _ = cache.Set(key, "updated_value")
			} else { // 90% reads
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				cache.Get(key)
			}
		}
	})
}
