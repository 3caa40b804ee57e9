package docstore

import "strings"

// maxSearchTerms bounds the SQL generated for one text predicate.
const maxSearchTerms = 8

func searchTerms(q string) []string {
	terms := strings.Fields(q)
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}
	return terms
}
