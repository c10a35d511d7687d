// Package claims provides exclusive, revocable ownership of named tasks.
//
// A claim gives one team member ownership of a task key. At most one claim
// per key is active at any instant: of any number of concurrent Claim calls
// for the same key, exactly one is granted and every other caller learns who
// the owner is. A denied claim is a normal outcome, not an error.
//
// Store serializes calls per key inside the process and delegates the
// compare-and-set to a Backend, which enforces exclusivity across processes:
// the SQLite store through a partial unique index, RedisBackend through
// atomic scripts.
//
// # Basic Usage
//
//	st := claims.NewStore(backend, claims.WithEventBus(bus))
//	res, err := st.Claim(ctx, "build-step-3", "worker-1")
//	if err != nil {
//		return err
//	}
//	if !res.Granted {
//		fmt.Printf("owned by %s\n", res.Owner)
//	}
//	defer st.Release(ctx, "build-step-3", "worker-1")
package claims
