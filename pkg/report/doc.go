// Package report renders merge results.
//
// Text output is meant for terminals and uses color when the output supports it. JSON
// and YAML output share the Document layout so tools can consume either.
package report
