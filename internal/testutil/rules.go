package testutil

import (
	"testing"

	"github.com/johnrirwin/dailylens/internal/normalize"
	"github.com/johnrirwin/dailylens/internal/registry"
)

// CatalogRules compiles the publisher quirks of the embedded feed catalog.
func CatalogRules(t testing.TB) []normalize.Rule {
	t.Helper()

	q := registry.Default().Quirks
	rules, err := normalize.RulesFromConfig(q.SuppressSources, q.ContentImageSources, q.TitleBoilerplate)
	if err != nil {
		t.Fatalf("compile catalog quirks: %v", err)
	}
	return rules
}
