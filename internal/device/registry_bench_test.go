package device

import (
	"context"
	"testing"
)

func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	reg := NewRegistry(NewMemoryRepository())
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := reg.Upsert(ctx, NewRegistration("10.1.0.1", uint16(2000+i), testTime)); err != nil {
			b.Fatalf("Upsert() error = %v", err)
		}
	}
	return reg
}

func BenchmarkRegistryGetAll(b *testing.B) {
	reg := setupBenchRegistry(b, 50)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.GetAll(ctx) //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryUpsert_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 50)
	ctx := context.Background()
	e := NewRegistration("10.1.0.2", 9000, testTime)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.Upsert(ctx, e) //nolint:errcheck // benchmark
		}
	})
}
