// Package database is the persistence lifecycle core of agentdeck. It owns
// the pooled connection handle, tunes it per backend family, coordinates
// schema creation and migration, and exposes the transactional CRUD façade
// the rest of the application uses.
//
// # Backends
//
// Two backend families are supported, resolved once from the connection URI
// at construction:
//
//   - SQLite (embedded): a single shared physical connection, WAL journal,
//     synchronous=NORMAL, and a 15s busy timeout. The pragma set trades
//     strict durability for concurrent read/write throughput; on power loss
//     the most recent commits can be lost, the database file cannot.
//   - Postgres (client/server): a bounded pool with zero overflow and
//     hourly connection recycling.
//
// # Lifecycle
//
// Structural operations (Initialize, Reset) are serialized through a
// non-blocking gate owned by each Manager. Contention fails immediately —
// structural requests never queue, callers retry explicitly. The gate does
// not block CRUD: availability wins over strict linearizability with schema
// changes, and callers quiesce traffic before Reset in production.
//
//	m, err := database.Open(database.Config{URI: "sqlite:///deck.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	if res := m.Initialize(ctx, false, true); !res.Status {
//	    log.Fatal(res.Message)
//	}
//
// # Façade
//
// Upsert, Get and Delete are generic over the entity bindings declared in
// the datamodel package. Each call runs in its own transaction with
// rollback guaranteed on every exit path, and folds any backend error into
// a Response — façade operations never raise.
//
//	team := &datamodel.Team{UserID: "u1", Component: cfg}
//	res := database.Upsert(ctx, m, team, false)
//
//	res = database.Get[datamodel.Team](ctx, m,
//	    map[string]any{"user_id": "u1"}, database.OrderDesc)
package database
