package store

// TotalDocsKey counts distinct ingested documents.
const TotalDocsKey = "total_docs"

// TermKey is the set of docIDs containing lemma.
func TermKey(lemma string) string {
	return "idx:" + lemma
}

// PostingKey is the list of "line:pos:len" records for lemma in docID.
func PostingKey(lemma, docID string) string {
	return "idx:" + lemma + ":" + docID
}

// DocPathKey maps a docID to its source path.
func DocPathKey(docID string) string {
	return "doc:" + docID + ":path"
}

// DocTermsKey is the set of lemmas written for docID.
func DocTermsKey(docID string) string {
	return "doc:" + docID + ":terms"
}

// LemmaKey maps a lowercase surface term to its lemma.
func LemmaKey(lang, term string) string {
	return "lemma:" + lang + ":" + term
}

// StopwordKey marks lemma as a stopword when present.
func StopwordKey(lang, lemma string) string {
	return "sw:" + lang + ":" + lemma
}
