// Package extract derives the individual fields of a mars.Record from fetched markup.
//
// Every extractor returns (Result[T], error). A Result with a non-nil Err is a soft
// failure: the field is left empty and the scrape carries on. The error return is
// reserved for session failures (navigation, snapshot) that abort the whole scrape.
//
// Selectors target third-party markup that changes without notice. Positional
// lookups are expressed as mars.Locator values in configuration; they are the most
// fragile part of the pipeline and are expected to break first.
package extract
