// Package datamodel implements the SCORM 2004 4th Edition CMI data model for
// one content attempt.
//
// # Addressing
//
// Element strings are resolved once, at the boundary, into an Address:
//
//	Scalar     cmi.completion_status, cmi.score.raw, adl.nav.request ...
//	Field      cmi.interactions.3.result, cmi.interactions.0.objectives.1.id
//	Count      cmi.objectives._count
//	SubCount   cmi.interactions.0.correct_responses._count
//	NavValid   adl.nav.request_valid.continue, adl.nav.request_valid.choice.{target=X}
//
// Every valid element matches exactly one variant. Schema entries live in
// static tables keyed by scalar name or by (collection, property) and are
// never mutated after package initialisation.
//
// # Storage
//
// Scalars are kept in a name to value map seeded from schema defaults.
// The four collections (interactions, objectives, comments_from_learner,
// comments_from_lms) are append-only slices of Record. A _count is always
// derived from the slice length; it is never stored and never writable.
// Writing a field at an index past the end appends empty records up to and
// including that index.
//
// # Change events
//
// Every mutation that actually changes a stored value is reported to the
// ChangeSink with the source taken from the innermost change context (see
// WithChangeContext). Emission can be suppressed for bulk restores.
//
// # Browse mode
//
// In browse mode a BrowseSession tracks activity and is torn down after an
// inactivity timeout. ShouldPersistData reports false whenever the attempt
// must not be persisted (browse mode or memory-only storage).
//
// DataModel is not safe for concurrent use, with one exception: the browse
// session is guarded because the inactivity timer fires on its own goroutine.
package datamodel
