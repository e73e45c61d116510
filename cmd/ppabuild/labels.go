package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ppabuild/internal/pipeline"
)

// stageLabel renders a stage name for tables, e.g. "Stamp Changelog".
func stageLabel(stage pipeline.Stage) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(stage), "-", " "))
}
