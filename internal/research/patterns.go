package research

import (
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// An entityPattern extracts organizing-company candidates from website text.
// The first capture group must hold the candidate name.
type entityPattern struct {
	Name string
	Kind string
	re   *regexp.Regexp
}

// PatternTable is the ordered set of extraction patterns applied to each
// fetched page.
type PatternTable struct {
	patterns []entityPattern
	regNums  []*regexp.Regexp
}

// A company name is a run of up to five capitalized words. Requiring the
// capital keeps the legal-suffix patterns from swallowing whole sentences.
const (
	nameWord   = `[\p{Lu}][\p{L}\p{N}&'\-]*`
	namePhrase = nameWord + `(?:\s+` + nameWord + `){0,4}`
)

// DefaultPatterns returns the built-in extraction table, tuned for Dutch
// festival websites with a few international fallbacks.
func DefaultPatterns() *PatternTable {
	t := &PatternTable{}
	add := func(name, kind, expr string) {
		t.patterns = append(t.patterns, entityPattern{
			Name: name,
			Kind: kind,
			re:   regexp.MustCompile(expr),
		})
	}

	// Dutch legal entity suffixes. These are the strongest signal because a
	// suffix only appears next to a registered company name.
	add("bv-suffix", "legal_entity",
		`\b(`+namePhrase+`\s+(?:B\.V\.|BV\b|N\.V\.|NV\b|V\.O\.F\.|VOF\b|C\.V\.))`)
	add("stichting-prefix", "legal_entity",
		`\b((?:Stichting|Vereniging)\s+`+namePhrase+`)(?:[.,;\n]|$)`)
	add("international-suffix", "legal_entity",
		`\b(`+namePhrase+`\s+(?:GmbH|Ltd\.?|Inc\.?|LLC))`)

	// Attribution phrases. Case-insensitive, so the capitalized-word rule is
	// relaxed here; the trigger phrase carries the signal instead.
	add("organized-by", "attribution",
		`(?i)(?:organi[sz]ed by|georganiseerd door|een initiatief van|powered by|productie van)[:\s]+(`+namePhrase+`)(?:[.,;\n]|$)`)
	add("copyright", "attribution",
		`©\s*(?:\d{4}\s*[-–]?\s*(?:\d{4})?\s*)?(`+namePhrase+`)(?:[.,;\n|]|$)`)

	// Dutch chamber of commerce number, 8 digits.
	t.regNums = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:kvk|k\.v\.k\.|kamer van koophandel)[\s.:#\-]*(?:nr\.?\s*)?(\d{8})\b`),
	}
	return t
}

// patternFile is the on-disk pattern table shape.
type patternFile struct {
	Patterns []struct {
		Name    string `yaml:"name"`
		Kind    string `yaml:"kind"`
		Pattern string `yaml:"pattern"`
	} `yaml:"patterns"`
	Registration []string `yaml:"registration"`
}

// LoadPatterns reads a pattern table from a YAML file so operators can extend
// extraction without a rebuild. Patterns must have exactly one capture group.
func LoadPatterns(path string) (*PatternTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "research: read pattern file")
	}
	var f patternFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "research: parse pattern file")
	}

	t := &PatternTable{}
	for _, p := range f.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "research: compile pattern %q", p.Name)
		}
		if re.NumSubexp() < 1 {
			return nil, eris.Errorf("research: pattern %q has no capture group", p.Name)
		}
		t.patterns = append(t.patterns, entityPattern{Name: p.Name, Kind: p.Kind, re: re})
	}
	for _, expr := range f.Registration {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, eris.Wrap(err, "research: compile registration pattern")
		}
		t.regNums = append(t.regNums, re)
	}
	if len(t.patterns) == 0 {
		return nil, eris.New("research: pattern file defines no patterns")
	}
	return t, nil
}

// candidate is one extracted company-name occurrence.
type candidate struct {
	Name string
	Kind string
}

// Extract returns every candidate occurrence in text, in match order.
// Duplicates are intentional; the caller tallies them.
func (t *PatternTable) Extract(text string) []candidate {
	var out []candidate
	for _, p := range t.patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			name := cleanCandidate(m[1])
			if name == "" {
				continue
			}
			out = append(out, candidate{Name: name, Kind: p.Kind})
		}
	}
	return out
}

// RegistrationNumber returns the first registration number found in text.
func (t *PatternTable) RegistrationNumber(text string) string {
	for _, re := range t.regNums {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func cleanCandidate(name string) string {
	name = strings.TrimSpace(name)
	// Trailing dots stay: they belong to legal suffixes like B.V. and Inc.
	name = strings.TrimLeft(name, ".,;:|- ")
	name = strings.TrimRight(name, ",;:|- ")
	name = strings.Join(strings.Fields(name), " ")
	if len(name) < 3 {
		return ""
	}
	return name
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName normalizes a name for tallying and containment checks: diacritics
// stripped, lowercased, whitespace collapsed. "Café Orkaan" and "cafe orkaan"
// tally as the same candidate.
func foldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
