// Package reconcile orders sets of media by visual similarity.
//
// Merge inserts the items of one ordered set into another, next to their
// closest match. Chain reorders an unordered set so that neighbours look
// alike. Both only read from the search engine; a failed or panicking query
// counts as "no match".
package reconcile
