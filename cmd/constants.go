package cmd

const (
	formatJSON  = "json"
	formatTable = "table"

	defaultPruneAge = "7d"

	// Longest table cell before truncation.
	maxColumnWidth = 60
)
