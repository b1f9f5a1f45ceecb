// Package snapshot publishes result tables to Redis for downstream consumers.
//
// A snapshot is written after a fetch completes. The client library never
// reads snapshots back in place of calling the API; Get exists for the
// dashboards and jobs that consume them.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	store := snapshot.NewStore(redisClient)
//
//	key := snapshot.Key{
//		Resource:  "peers",
//		CallerID:  session.Identity().ID,
//		CourseIDs: courseIDs,
//		RunID:     result.RunID,
//	}
//	if _, err := store.Put(ctx, key, result.Table, 24*time.Hour); err != nil {
//		return err
//	}
//
//	// Consumer side
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, snapshot.ErrNotFound) {
//		// nothing published yet
//	}
//
// # Metrics
//
//   - canvas_snapshot_writes_total{resource} - Snapshots written
//   - canvas_snapshot_bytes{resource} - Size of the last snapshot written
//   - canvas_snapshot_errors_total{operation} - Store operation errors
package snapshot
