// Package querycache keeps client-side copies of server data in step with
// the server.
//
// A Store holds one Entry per key: the encoded value, where the key is in its
// fetch lifecycle (idle, loading, success, error) and when the value goes
// stale. A Client runs fetches against the store, at most one per key, and
// serves stale-while-revalidate reads. Bindings subscribe views to keys and
// hand them decoded, projected results after every change.
//
// Components:
//   - Provider: byte store holding encoded values (BigCache, Ristretto, Redis).
//   - Codec[V]: (de)serializes V <-> []byte; decoding gives every reader a
//     private value.
//   - GenStore: generation counter per key. Invalidation bumps it, and a
//     fetch that started under an older generation is discarded.
//
// Keys:
//
//	entry:<ns>:<key>   - stored values, framed with their generation
//
// Read path:
//
//	b := querycache.Watch(ctx, client, q, querycache.Identity[Page], render)
//	defer b.Close()
//
// Write path:
//
//	api.Update(ctx, id, patch)
//	client.Invalidate(ctx, "task:"+id) // observed keys refetch
package querycache
