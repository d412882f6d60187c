package fiscal

import "strings"

// boilerplate holds substrings of letterhead and footer lines that carry no data.
var boilerplate = []string{
	"MINISTÉRIO DA FAZENDA",
	"Por meio do e-CAC",
	"SECRETARIA ESPECIAL",
	"PROCURADORIA-GERAL",
	"Página:",
	"INFORMAÇÕES DE APOIO",
}

// Preprocess removes boilerplate lines and collapses runs of blank lines into a single
// blank line. A line made only of whitespace counts as blank.
func Preprocess(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	prevBlank := false
	for _, line := range lines {
		if isBoilerplate(line) {
			continue
		}
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		prevBlank = blank
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isBoilerplate(line string) bool {
	for _, b := range boilerplate {
		if strings.Contains(line, b) {
			return true
		}
	}
	return false
}
