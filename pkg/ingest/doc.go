// Package ingest loads long-format input into the staging store.
//
// Input is a stream of (entity, key, value) records from a Decoder:
//
//   - CSVDecoder: a header row naming the entity, key and value columns
//   - JSONLDecoder: one object per line, either an attribute map or a
//     single key/value pair
//   - Generator: random demo data
//
// A Loader selects each entity once per run of consecutive records and
// attaches its pairs in batches:
//
//	dec, closer, err := ingest.OpenFile("products.csv", ingest.Options{})
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//	stats, err := ingest.NewLoader(store).Load(ctx, dec)
package ingest
