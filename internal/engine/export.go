package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

var exportHeader = []string{
	"Path",
	"Elm-test version",
	"Elm",
	"Lamdera stable no wire",
	"Lamdera stable",
	"Lamdera next no wire",
	"Lamdera next",
}

// ExportCSV writes the completed snapshot in storage order. Rows where
// every executed compiler passed carry no signal and are skipped.
func ExportCSV(w io.Writer, completed []Completed) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, done := range completed {
		if done.Results.UnanimousPass() {
			continue
		}
		record := append(
			[]string{done.Target.Path, done.Results.Version.String()},
			done.Results.Columns()...,
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile writes the snapshot to path, overwriting any previous export.
func ExportFile(path string, completed []Completed) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := ExportCSV(f, completed); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}
