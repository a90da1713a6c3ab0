package pipeline

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"hlasmcore/internal/diagnostics"
)

// goldenFixtures bundles several independent statement-stream cases into
// one txtar archive: each case is a pair of files, <name>.hlasm (source)
// and <name>.want (one diagnostic code per line, or empty for none).
const goldenFixtures = `
-- redefinition.hlasm --
TARGET   EQU   5
TARGET   EQU   6
-- redefinition.want --
E010
-- undefined-variable.hlasm --
RESULT   EQU   &MISSING
-- undefined-variable.want --
E065
-- clean.hlasm --
A        EQU   1
B        EQU   2
-- clean.want --
`

func TestPipelineGoldenFixtures(t *testing.T) {
	archive := txtar.Parse([]byte(goldenFixtures))
	cases := map[string]struct{ src, want string }{}
	for _, f := range archive.Files {
		name := strings.TrimSuffix(strings.TrimSuffix(f.Name, ".hlasm"), ".want")
		c := cases[name]
		switch {
		case strings.HasSuffix(f.Name, ".hlasm"):
			c.src = string(f.Data)
		case strings.HasSuffix(f.Name, ".want"):
			c.want = string(f.Data)
		}
		cases[name] = c
	}
	if len(cases) == 0 {
		t.Fatalf("no fixtures parsed from archive")
	}

	for name, c := range cases {
		name, c := name, c
		t.Run(name, func(t *testing.T) {
			lines := stringLines(strings.Split(strings.TrimRight(c.src, "\n"), "\n"))
			col := &diagnostics.Collector{}
			p := New(lines, nil, col, Hooks{})
			if err := p.Run(); err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			gotCodes := make([]string, 0, len(col.Diags))
			for _, d := range col.Diags {
				gotCodes = append(gotCodes, d.Code)
			}
			want := strings.Fields(c.want)
			if len(want) != len(gotCodes) {
				t.Fatalf("%s: expected codes %v, got %v", name, want, gotCodes)
			}
			for i := range want {
				if want[i] != gotCodes[i] {
					t.Fatalf("%s: expected codes %v, got %v", name, want, gotCodes)
				}
			}
		})
	}
}
