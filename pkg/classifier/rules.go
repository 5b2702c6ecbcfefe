package classifier

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/firstaid/pkg/input"
	"gopkg.in/yaml.v3"
)

// Rule maps a substring pattern to an emergency name.
type Rule struct {
	Pattern string `yaml:"pattern"`
	// Priority ranks rules; higher runs first. Zero means the pattern's
	// length in runes, so more specific patterns win by default.
	Priority int    `yaml:"priority,omitempty"`
	Target   string `yaml:"target"`
}

// RuleTable is an immutable, ranked list of rules.
type RuleTable struct {
	rules []Rule
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleTable folds and ranks the rules: highest priority first, then
// longer pattern, then lexical order.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	ranked := make([]Rule, 0, len(rules))
	for i, r := range rules {
		pattern := input.Fold(r.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if strings.TrimSpace(r.Target) == "" {
			return nil, fmt.Errorf("rule %d (%q): empty target", i, r.Pattern)
		}
		if r.Priority == 0 {
			r.Priority = utf8.RuneCountInString(pattern)
		}
		r.Pattern = pattern
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		la, lb := utf8.RuneCountInString(a.Pattern), utf8.RuneCountInString(b.Pattern)
		if la != lb {
			return la > lb
		}
		return a.Pattern < b.Pattern
	})
	return &RuleTable{rules: ranked}, nil
}

// Match returns the target of the first rule whose pattern occurs in the folded text.
func (t *RuleTable) Match(text string) (string, bool) {
	folded := input.Fold(text)
	for _, r := range t.rules {
		if strings.Contains(folded, r.Pattern) {
			return r.Target, true
		}
	}
	return "", false
}

// Rules returns the ranked rules.
func (t *RuleTable) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Targets returns the distinct emergency names the table can produce, sorted.
func (t *RuleTable) Targets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rules {
		if !seen[r.Target] {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	sort.Strings(out)
	return out
}

// ParseRules decodes a YAML rules document:
//
//	rules:
//	  - pattern: rcp bebes
//	    target: RCP en Bebés (< 1 año)
func ParseRules(data []byte) (*RuleTable, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return NewRuleTable(f.Rules)
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// DefaultRules is the built-in Spanish keyword table.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "ojo", Target: "Cuerpo Extraño en el Ojo"},
		{Pattern: "quemadura", Target: "Quemaduras de Segundo Grado"},
		{Pattern: "electrica", Target: "Quemaduras Eléctricas"},
		{Pattern: "atragantamiento", Target: "Atragantamiento en Adultos y Niños Mayores"},
		{Pattern: "atraganta", Target: "Atragantamiento en Adultos y Niños Mayores"},
		{Pattern: "convulsion", Target: "Convulsiones (Post-Convulsión y Protección)"},
		{Pattern: "diente", Target: "Dientes Rotos o Caídos"},
		{Pattern: "respirar", Target: "Dificultad para Respirar (Leve)"},
		{Pattern: "fractura", Target: "Fracturas Evidentes o Sospechosas"},
		{Pattern: "hemorragia", Target: "Hemorragia Severa"},
		{Pattern: "ahogamiento", Target: "Ahogamiento"},
		{Pattern: "cabeza", Target: "Golpe en la Cabeza"},
		{Pattern: "corte", Target: "Cortes y Raspaduras Menores"},
		{Pattern: "esguince", Target: "Esguinces y Torceduras Leves"},
		{Pattern: "picadura", Target: "Picaduras de Insectos (No Alérgicas)"},
		{Pattern: "golpe", Target: "Golpes y Contusiones Menores"},
		{Pattern: "sangrado nasal", Target: "Sangrado Nasal"},
		{Pattern: "insolacion", Target: "Insolación Leve / Agotamiento por Calor"},
		{Pattern: "hipotermia", Target: "Hipotermia Leve"},
		{Pattern: "desmayo", Target: "Desmayo (Síncope Simple)"},
		{Pattern: "rcp niños", Target: "RCP en Niños (1 a 8 años)"},
		{Pattern: "rcp bebes", Target: "RCP en Bebés (< 1 año)"},
		{Pattern: "rcp", Target: "RCP en Adultos (Solo Manos)"},
		{Pattern: "revision", Target: "Revisión Básica de Conciencia y Respiración"},
	}
}

// MustDefaultTable builds the table of DefaultRules.
func MustDefaultTable() *RuleTable {
	t, err := NewRuleTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}
