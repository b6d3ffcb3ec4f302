// Package device holds the registry of LED endpoints that receive frames.
//
// An Endpoint is created when a device connects to the registration
// listener and announces its UDP port. Endpoints are keyed by
// "address:port"; registering the same pair again overwrites the entry.
//
// # Architecture
//
//	registration listener ──Clear/Upsert──▶ Registry ◀──GetAll── streamer
//	                                           │
//	                                      Repository
//	                              (SQLiteRepository | MemoryRepository)
//
// The Registry serves reads from an in-memory cache; the repository only
// sees writes and the startup RefreshCache.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	endpoints, _ := registry.GetAll(ctx)
package device
