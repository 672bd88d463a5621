// Package pyscope provides live semantic highlighting for Python source.
// Every identifier occurrence is classified by how it binds (local, global,
// builtin, parameter, free variable, imported name, attribute, self) using
// the same scope analysis CPython's compiler performs.
//
// # Pipeline
//
// Each revision of a buffer goes through four stages:
//
//  1. Build: parse with tree-sitter into a syntax tree. When the revision
//     fails to parse and only one line changed, that line is sanitized and
//     the parse retried, so highlighting keeps working while a line is
//     being typed.
//
//  2. Scope tables: reproduce CPython's symtable analysis, including
//     comprehension scopes, class scopes and private name mangling.
//
//  3. Walk: visit the tree in scope order and classify every occurrence.
//
//  4. Diff: compare with the previous revision. After a one-line edit,
//     unchanged occurrences keep their highlight ids so the editor only
//     repaints what changed.
//
// # Usage
//
// Create one Session per buffer and feed it every revision:
//
//	s := pyscope.NewSession(pyscope.WithExclude(pyscope.Local))
//	res, err := s.Analyze(ctx, code, false)
//	var unparsable *pyscope.UnparsableError
//	if errors.As(err, &unparsable) {
//		// keep the previous highlights
//	}
//	for _, o := range res.Removed { ... }
//	for _, o := range res.Added { ... }
//
// # Queries
//
// A Session answers editor queries over its last parsable revision:
// [Session.NodeAt], [Session.SameOccurrences], [Session.LocationsOf],
// [Session.Rename], [Session.Selected] and [Session.ErrorPosition].
//
// # Project index
//
// An [Indexer] analyzes every Python file of a project in parallel and
// stores the occurrences in SQLite; its [QueryBuilder] reads them back.
// Unchanged files are skipped by content hash.
package pyscope
