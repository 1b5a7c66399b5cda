package config

import "testing"

func TestValidateDefaultIsClean(t *testing.T) {
	issues := Validate(Default())
	if HasErrors(issues) {
		t.Fatalf("default config should have no errors, got %v", issues)
	}
}

func TestValidateFindsErrors(t *testing.T) {
	c := Default()
	c.Job = ""
	c.NumFiles = 0
	c.CuratedDir = " "
	c.Backend = "spark"

	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("expected errors, got %v", issues)
	}
	paths := map[string]bool{}
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			paths[iss.Path] = true
		}
	}
	for _, want := range []string{"job", "num_files", "curated_data_dir", "backend"} {
		if !paths[want] {
			t.Fatalf("missing error for %s in %v", want, issues)
		}
	}
}

func TestValidateWarnsOnIgnoredRuntime(t *testing.T) {
	c := Default()
	c.Runtime.Workers = 4

	var warned bool
	for _, iss := range Validate(c) {
		if iss.Severity == SeverityWarning && iss.Path == "runtime" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected runtime warning for memory backend")
	}
}
