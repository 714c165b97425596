package domcapture

import "testing"

func TestBuildSelectorPathTerminatesAtID(t *testing.T) {
	chain := []AncestorNode{
		{TagName: "body"},
		{TagName: "div", ID: "app"},
		{TagName: "button", SiblingIdx: 1},
	}
	got := BuildSelectorPath(chain)
	if got != "#app > button" {
		t.Fatalf("got %q", got)
	}
}

func TestStableClassesIgnoresFrameworkClasses(t *testing.T) {
	classes := []string{"btn-primary", "_x1f9a2", "active"}
	stable := StableClasses(classes)
	if len(stable) != 1 || stable[0] != "btn-primary" {
		t.Fatalf("got %v", stable)
	}
}

func TestPreferredSelectorPrefersID(t *testing.T) {
	target := AncestorNode{TagName: "button", ID: "submit", TestID: "submit-btn"}
	sel, kind := PreferredSelector(target, false, []AncestorNode{target})
	if sel != "#submit" || kind != "id" {
		t.Fatalf("got %q/%q", sel, kind)
	}
}

func TestPreferredSelectorFallsBackToTestID(t *testing.T) {
	target := AncestorNode{TagName: "button", TestID: "submit-btn"}
	sel, kind := PreferredSelector(target, false, []AncestorNode{target})
	if sel != "[data-testid=submit-btn]" || kind != "testid" {
		t.Fatalf("got %q/%q", sel, kind)
	}
}

func TestAccessibleNameCascade(t *testing.T) {
	cases := []struct {
		name string
		src  NameSources
		want string
	}{
		{"aria-label wins", NameSources{AriaLabel: "Close", Title: "X"}, "Close"},
		{"falls to label", NameSources{AssociatedLabel: "Email"}, "Email"},
		{"falls to placeholder", NameSources{Placeholder: "Search"}, "Search"},
		{"button text content", NameSources{TagName: "button", TextContent: "Continue"}, "Continue"},
		{"submit value", NameSources{TagName: "input", Value: "Go"}, "Go"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := AccessibleName(c.src); got != c.want {
				t.Errorf("got %q want %q", got, c.want)
			}
		})
	}
}

func TestExtractValueRedactsPassword(t *testing.T) {
	if got := ExtractValue("password", "hunter2", false, ""); got != RedactionToken {
		t.Fatalf("got %q", got)
	}
}

func TestExtractValueChecked(t *testing.T) {
	if got := ExtractValue("checkbox", "", true, ""); got != "checked" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractValue("checkbox", "", false, ""); got != "unchecked" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractValueFileNameOnly(t *testing.T) {
	if got := ExtractValue("file", "", false, "/tmp/secret/report.pdf"); got != "report.pdf" {
		t.Fatalf("got %q", got)
	}
}
