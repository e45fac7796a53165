// Package report renders store contents for export.
//
// Store reads are first turned into a Table (header plus text rows) by
// RepositoriesTable, JoinedTable or ContributorsTable, then written by one
// of the format writers:
//   - CSVWriter: header row plus one row per record; the header can be
//     suppressed when appending to an existing file
//   - MarkdownWriter: a Markdown document with one table
//   - XLSXWriter: an Excel workbook with one sheet
//   - JSONWriter: an array of objects keyed by column name
//
// Writers add no formatting policy of their own beyond what each format
// requires.
package report
