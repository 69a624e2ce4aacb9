// Package mphash builds minimal perfect hash functions (MPHFs) over fixed
// key sets and static lookup tables indexed by them.
//
// An MPHF maps each of n distinct keys to a distinct code in [0, n). It is
// built by peeling a random 3-uniform hypergraph with one edge per key,
// assigning a 2-bit code per vertex, and ranking the used vertices. Lookup
// data costs roughly 0.3 bytes per key plus the rank directory.
//
// # Basic Usage
//
// Building a function:
//
//	m, err := mphash.Build(ctx, mphash.StringKeys([]string{"foo", "bar", "baz"}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	code := m.Hash([]byte("bar")) // in [0, 3)
//
// Building a table:
//
//	t, err := mphash.BuildTable(ctx, []mphash.Pair{
//	    {Key: []byte("foo"), Value: []byte("hoge")},
//	    {Key: []byte("bar"), Value: []byte("fuga")},
//	})
//	v, ok := t.Lookup([]byte("foo"))
//
// Persisting and reopening:
//
//	if err := mphash.SaveTable("table.mph", t); err != nil {
//	    log.Fatal(err)
//	}
//	idx, err := mphash.Open("table.mph")
//	defer idx.Close()
//	v, err := idx.Lookup([]byte("foo"))
//
// The cgen package turns the same parameters into self-contained C source.
//
// # Package Structure
//
//   - Public API: builder.go (Build), mphf.go (MPHF, Params), table.go
//     (BuildTable, Lookup), verify.go (parallel Verify)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Serialization: header.go (header, footer, layout), index_writer.go
//     (Save, atomic writes), index.go (Open, Index)
//   - Construction: internal/hashtuple (salted hashes, SaltSource),
//     internal/hypergraph (peeling), internal/garray (code assignment),
//     internal/rank (rank directory), internal/bits (packed code words)
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go
package mphash
