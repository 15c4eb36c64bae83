// Package normalisers turns uploaded document files into raw text.
// Each extractor handles a set of file extensions; the Registry dispatches
// on the extension and rejects anything outside the allow-list.
package normalisers
