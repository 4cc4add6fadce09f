// Package core provides the ingestion logic for fleet and service data files.
//
// This package contains all decision logic of the ingestion screen,
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Slots
//
// A visit uploads two files: the operational dataset ([SlotOperational]) and
// the base (depot/fleet) dataset ([SlotBase]). Each slot is validated against
// its own [Schema] of required header names.
//
// # Parsing
//
// [Parser.Parse] accepts .csv content. Spreadsheet extensions (.xlsx, .xls)
// are recognized and rejected with [KindUnsupportedFormat]; other extensions
// fail with [KindUnsupportedFileType]. Parsing runs three stages:
//
//  1. Split lines on \n or \r\n, skip blank lines, split cells on ','
//  2. Drop rows whose cell count differs from the header and report them in [Table.Dropped]
//  3. Normalize cells: hh:mm:ss literals stay as they are, numbers get two
//     decimals, everything else is trimmed text
//
// # Session
//
// [Session] is an immutable value. Operations return the updated session:
//
//	sess := core.NewSession(schemas)
//	sess, table, err := sess.Upload(core.SlotOperational, core.NewRawUpload(name, data))
//	if sess.Ready() {
//	    sess, handle, err = sess.Generate(ctx, generator)
//	}
//
// Asynchronous reads use [Session.BeginRead] and [Session.CompleteRead]; a
// completion for a superseded read returns [ErrStaleRead] and changes nothing.
//
// # Error Handling
//
// All failures are [*IngestionError] values with an [ErrorKind]. [MapError]
// turns any error into a [UserMessage] with a support code.
package core
