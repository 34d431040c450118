// Package core provides the ingestion pipeline for rail measurement CSV exports.
//
// This package contains all domain logic independent of any transport or
// storage layer. It can be used by the HTTP server, the CLI, or tests without
// modification.
//
// # Architecture
//
//   - Schema Catalog: one [SystemDefinition] per measurement system, registered
//     at init time via [Register] (see package systems).
//   - Pipeline: [StreamFile] and [ProcessFile] take a file from raw bytes to
//     [OutputRecord]s, a [HeaderDiff] and a list of [RowError]s.
//   - Service: [Service] adds limits, persistence through a [Store], metrics
//     through a [Recorder] and directory ingests under a [Locker] lease.
//
// # Pipeline
//
//  1. [DecodeReader] strips a BOM and decodes Windows-1252 exports
//  2. An optional running-date line ("3/6/2023 9:14:02 AM") is split off
//  3. [DetectSeparator] picks the comma or semicolon convention
//  4. [NormalizeColumn] canonicalizes the header, [Reconcile] diffs it
//     against the catalog
//  5. Per data line: [RowParser.Parse], [Tag], [Assemble] (with [Decompose])
//
// # Error Handling
//
// A header missing a required column fails the whole file with a
// [*FileHeaderError]. A row whose required field cannot be coerced
// ([*RowCoercionError]) or whose location is malformed
// ([*MalformedLocationError]) is dropped and reported; the file continues.
// Unparsable optional measurements are not errors: they become the "NaN"
// sentinel with a [NanReason].
//
// Technical errors are mapped to operator-facing messages using [MapError].
package core
