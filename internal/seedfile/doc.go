// Package seedfile reads documents for seeding a MongoDB collection from
// JSON (extended JSON), YAML, CSV and XLSX files.
//
// JSON and YAML files hold either a bare array of documents or an object of
// the form
//
//	{"database_name": "...", "collection_name": "...", "documents": [...]}
//
// CSV and XLSX files are tables: the first non-empty row names the fields,
// starting at its first non-empty cell. Cell values are typed as integer,
// float, boolean or string, and empty cells are left out of the document.
package seedfile
