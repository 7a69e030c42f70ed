package page

import "testing"

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"heading", `<body><h1>Pods</h1></body>`, "Random K8s: Pods"},
		{"uppercase tags", `<H1>Services</H1>`, "Random K8s: Services"},
		{"first heading wins", `<h1>One</h1><h1>Two</h1>`, "Random K8s: One"},
		{"no heading", `<body><p>text</p></body>`, "Random K8s"},
		{"empty heading", `<h1></h1>`, "Random K8s"},
		{
			"long heading",
			`<h1>Configure a Security Context for a Pod or Container</h1>`,
			"Random K8s: Configure a Security Context for a Pod o…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.markup, "Random K8s", 40); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			"quoted name",
			`<meta name="description" content="Pods are the smallest units.">`,
			"Pods are the smallest units.",
		},
		{
			"unquoted name",
			`<meta name=description content="A Service exposes Pods.">`,
			"A Service exposes Pods.",
		},
		{
			"collapses whitespace",
			"<meta name=\"description\" content=\"Line one\nline   two\">",
			"Line one line two",
		},
		{"missing", `<meta name="keywords" content="k8s">`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDescription(tt.markup); got != tt.want {
				t.Errorf("ExtractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}
