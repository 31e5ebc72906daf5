package scanner

// Origin identifies where a statement was found.
type Origin string

const (
	// OriginScript is a statement from a SQL or PL/SQL script.
	OriginScript Origin = "script"
	// OriginEmbedded is a SQL string literal inside application code.
	OriginEmbedded Origin = "embedded"
)

// Statement is one SQL statement found in a file.
type Statement struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Origin Origin `json:"origin"`
	// Ignored is set when the statement carries an oraspectre:ignore comment.
	Ignored bool `json:"ignored,omitempty"`
}

// ScanResult holds every analysable statement found under a directory.
type ScanResult struct {
	Root       string      `json:"root"`
	Statements []Statement `json:"statements"`
	// SkippedStatements counts DDL, session and other statements that are
	// not analysed.
	SkippedStatements int `json:"skippedStatements,omitempty"`
	FilesScanned      int `json:"filesScanned"`
	FilesSkipped      int `json:"filesSkipped,omitempty"`
}
