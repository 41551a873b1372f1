// Package pghexedit decodes PostgreSQL relation segment files into labeled
// byte ranges for a hex editor's tag view.
//
// The library is organized into logical groups of functionality:
//
// Page Structure Components:
//   - page: header, line pointer array, special section classification,
//     special section and metapage annotation
//   - checksum: data page checksums
//   - format: on-disk constants, bounds-checked readers, version capabilities
//
// Tuple Handling:
//   - record: heap, index, SP-GiST, BRIN, GIN posting and bitmap decoders
//   - column: attribute walking over a tuple payload
//   - schema: attribute descriptors from an attribute list or CREATE TABLE
//
// I/O Operations:
//   - segment: block reader over plain or compressed segment copies
//   - emit: annotation sinks (wxHexEditor XML, SQLite, memory)
//   - decoder.go: the run driver tying the above together
//
// Basic usage:
//
//	r, _ := segment.Open("base/16384/16397.1")
//	defer r.Close()
//
//	sink, _ := emit.NewXMLSink(os.Stdout, r.Path(), emit.Preamble{Created: time.Now()})
//	dec, _ := pghexedit.NewDecoder(sink, logrus.New(), pghexedit.Options{Checksum: pghexedit.ChecksumAlways})
//	_ = dec.Run(r)
//	_ = dec.Close()
//
//	if dec.Failed() {
//	    os.Exit(1)
//	}
package pghexedit
