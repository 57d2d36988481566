package schema

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// AggressiveCategory is one of the adversarial value classes used for
// aggressive-phase generation.
type AggressiveCategory string

const (
	CategoryBoundary      AggressiveCategory = "boundary"
	CategoryTypeConfused  AggressiveCategory = "type-confused"
	CategoryOversized     AggressiveCategory = "oversized"
	CategoryAdversarial   AggressiveCategory = "adversarial-literal"
	CategoryUnsatisfiable AggressiveCategory = "unsatisfiable-union"
)

var aggressiveCategories = []AggressiveCategory{
	CategoryBoundary, CategoryTypeConfused, CategoryOversized, CategoryAdversarial,
}

const oversizedStringLen = 10_000
const oversizedDepth = 32

var adversarialLiterals = []string{
	"' OR 1=1; --",
	"<script>alert(1)</script>",
	"../../etc/passwd",
	"javascript:alert(document.cookie)",
	"$(rm -rf /)",
	"`id`",
	"{{7*7}}",
	"\x00\x01\x02",
}

// Generator produces values for a parsed Schema in either phase. It
// holds a private RNG so a fuzz run's generation is reproducible given a
// fixed seed, the same determinism the seed pool also relies on.
type Generator struct {
	rng *rand.Rand
}

// New builds a Generator seeded for reproducibility within one
// orchestrator instance. Replay determinism across *processes* is not
// promised, only within a run.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces a value for schema s under phase, cycling boundary
// choices deterministically across runIndex.
func (g *Generator) Generate(s *Schema, phase Phase, runIndex int) (interface{}, error) {
	if s == nil {
		return nil, nil
	}
	if phase == Aggressive {
		return g.generateAggressive(s, runIndex, 0)
	}
	return g.generateRealistic(s, runIndex, 0)
}

// --- realistic ---

func (g *Generator) generateRealistic(s *Schema, runIndex, depth int) (interface{}, error) {
	if s.Const != nil {
		return s.Const, nil
	}
	if len(s.Enum) > 0 {
		return Cycle(runIndex, s.Enum), nil
	}
	if len(s.OneOf) > 0 {
		chosen := Cycle(runIndex, s.OneOf)
		return g.generateRealistic(chosen, runIndex, depth+1)
	}
	if len(s.AnyOf) > 0 {
		chosen := Cycle(runIndex, s.AnyOf)
		return g.generateRealistic(chosen, runIndex, depth+1)
	}
	if len(s.AllOf) > 0 {
		// All branches must hold simultaneously; realistic mode merges by
		// generating from the most constrained (last) branch, which in
		// practice is the common "base type + refinement" shape.
		return g.generateRealistic(s.AllOf[len(s.AllOf)-1], runIndex, depth+1)
	}

	switch s.Type {
	case "string":
		return g.realisticString(s, runIndex), nil
	case "integer":
		return g.realisticNumber(s, runIndex, true), nil
	case "number":
		return g.realisticNumber(s, runIndex, false), nil
	case "boolean":
		return runIndex%2 == 0, nil
	case "null":
		return nil, nil
	case "array":
		return g.realisticArray(s, runIndex, depth)
	case "object", "":
		return g.realisticObject(s, runIndex, depth)
	default:
		return nil, &Error{Reason: fmt.Sprintf("unsupported type %q", s.Type)}
	}
}

func (g *Generator) realisticString(s *Schema, runIndex int) string {
	if example, ok := formatExample(s.Format, runIndex); ok {
		return example
	}

	minLen, maxLen := 1, 16
	if s.MinLength != nil {
		minLen = *s.MinLength
	}
	if s.MaxLength != nil {
		maxLen = *s.MaxLength
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	target := minLen
	if maxLen > minLen {
		target = minLen + g.rng.Intn(maxLen-minLen+1)
	}

	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for b.Len() < target {
		b.WriteByte(alphabet[g.rng.Intn(len(alphabet))])
	}
	out := b.String()
	if len(out) > target {
		out = out[:target]
	}
	return out
}

func formatExample(format string, runIndex int) (string, bool) {
	switch format {
	case "email":
		return "user@example.com", true
	case "date-time":
		return "2024-01-01T00:00:00Z", true
	case "uuid":
		return "00000000-0000-4000-8000-00000000000" + fmt.Sprint(runIndex%10), true
	default:
		return "", false
	}
}

func (g *Generator) realisticNumber(s *Schema, runIndex int, integer bool) interface{} {
	lo, hi := 0.0, 100.0
	if s.Minimum != nil {
		lo = *s.Minimum
	} else if s.ExclusiveMinimum != nil {
		lo = *s.ExclusiveMinimum + 1
	}
	if s.Maximum != nil {
		hi = *s.Maximum
	} else if s.ExclusiveMaximum != nil {
		hi = *s.ExclusiveMaximum - 1
	}
	if hi < lo {
		hi = lo
	}

	// Cycle lo, mid, hi across run_index so repeated runs exercise both
	// boundaries, not just the midpoint.
	choices := []float64{lo, (lo + hi) / 2, hi}
	v := Cycle(runIndex, choices)

	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		v = math.Round(v/(*s.MultipleOf)) * (*s.MultipleOf)
		if v < lo {
			v += *s.MultipleOf
		}
		if v > hi {
			v -= *s.MultipleOf
		}
	}

	if integer {
		return int64(math.Round(v))
	}
	return v
}

func (g *Generator) realisticArray(s *Schema, runIndex, depth int) (interface{}, error) {
	minItems := 0
	if s.MinItems != nil {
		minItems = *s.MinItems
	}
	maxItems := minItems + 2
	if s.MaxItems != nil {
		maxItems = *s.MaxItems
	}
	if maxItems < minItems {
		maxItems = minItems
	}
	n := minItems
	if maxItems > minItems {
		n = minItems + g.rng.Intn(maxItems-minItems+1)
	}

	itemSchema := s.Items
	if itemSchema == nil {
		itemSchema = &Schema{Type: "string"}
	}

	out := make([]interface{}, 0, n)
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		v, err := g.generateRealistic(itemSchema, runIndex+i, depth+1)
		if err != nil {
			return nil, err
		}
		if s.UniqueItems {
			key := fmt.Sprintf("%v", v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	return out, nil
}

func (g *Generator) realisticObject(s *Schema, runIndex, depth int) (interface{}, error) {
	out := make(map[string]interface{})

	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	// Visit properties in sorted order so the rng draws below line up with
	// the same properties on every run with the same seed.
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		propSchema := s.Properties[name]
		if !required[name] && g.rng.Float64() < 0.3 {
			continue // optional properties are sometimes omitted
		}
		v, err := g.generateRealistic(propSchema, runIndex, depth+1)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	for name := range required {
		if _, ok := out[name]; !ok {
			if propSchema, ok := s.Properties[name]; ok {
				v, err := g.generateRealistic(propSchema, runIndex, depth+1)
				if err != nil {
					return nil, err
				}
				out[name] = v
			}
		}
	}

	// additionalProperties:false is read strictly in realistic mode per the
	// Open Question resolved in SPEC_FULL.md: never add extra keys.
	return out, nil
}

// --- aggressive ---

func (g *Generator) generateAggressive(s *Schema, runIndex, depth int) (interface{}, error) {
	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		if g.rng.Float64() < 0.25 {
			return g.unsatisfiableUnion(s), nil
		}
		branches := s.OneOf
		if len(branches) == 0 {
			branches = s.AnyOf
		}
		return g.generateAggressive(Cycle(runIndex, branches), runIndex, depth+1)
	}

	category := Cycle(runIndex, aggressiveCategories)
	switch category {
	case CategoryBoundary:
		return g.boundaryValue(s, runIndex, depth)
	case CategoryTypeConfused:
		return g.typeConfusedValue(s), nil
	case CategoryOversized:
		return g.oversizedValue(s, depth), nil
	case CategoryAdversarial:
		return g.adversarialValue(s, runIndex), nil
	default:
		return g.boundaryValue(s, runIndex, depth)
	}
}

func (g *Generator) boundaryValue(s *Schema, runIndex, depth int) (interface{}, error) {
	switch s.Type {
	case "integer", "number":
		lo, hi := 0.0, 100.0
		if s.Minimum != nil {
			lo = *s.Minimum
		}
		if s.Maximum != nil {
			hi = *s.Maximum
		}
		choices := []float64{lo - 1, lo, hi, hi + 1}
		v := Cycle(runIndex, choices)
		if s.Type == "integer" {
			return int64(v), nil
		}
		return v, nil
	case "string":
		minLen := 0
		if s.MinLength != nil {
			minLen = *s.MinLength
		}
		maxLen := minLen + 8
		if s.MaxLength != nil {
			maxLen = *s.MaxLength
		}
		lens := []int{minLen - 1, minLen, maxLen, maxLen + 1}
		n := Cycle(runIndex, lens)
		if n < 0 {
			n = 0
		}
		return strings.Repeat("a", n), nil
	case "array":
		minN := 0
		if s.MinItems != nil {
			minN = *s.MinItems
		}
		maxN := minN + 3
		if s.MaxItems != nil {
			maxN = *s.MaxItems
		}
		choices := []int{minN - 1, minN, maxN, maxN + 1}
		n := Cycle(runIndex, choices)
		if n < 0 {
			n = 0
		}
		item := s.Items
		if item == nil {
			item = &Schema{Type: "string"}
		}
		out := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			v, err := g.generateRealistic(item, runIndex+i, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case "object", "":
		return g.realisticObject(s, runIndex, depth)
	default:
		v, err := g.generateRealistic(s, runIndex, depth)
		return v, err
	}
}

func (g *Generator) typeConfusedValue(s *Schema) interface{} {
	switch s.Type {
	case "string":
		return float64(12345)
	case "integer", "number":
		return "not-a-number"
	case "boolean":
		return "true"
	case "array":
		return map[string]interface{}{"not": "an array"}
	case "object":
		return []interface{}{"not", "an", "object"}
	default:
		return nil
	}
}

func (g *Generator) oversizedValue(s *Schema, depth int) interface{} {
	switch s.Type {
	case "string":
		return strings.Repeat("A", oversizedStringLen)
	case "array":
		out := make([]interface{}, 0, 1000)
		for i := 0; i < 1000; i++ {
			out = append(out, i)
		}
		return out
	case "object", "":
		return deeplyNestedObject(oversizedDepth)
	default:
		return strings.Repeat("A", oversizedStringLen)
	}
}

func deeplyNestedObject(depth int) interface{} {
	if depth <= 0 {
		return "bottom"
	}
	return map[string]interface{}{"nested": deeplyNestedObject(depth - 1)}
}

func (g *Generator) adversarialValue(s *Schema, runIndex int) interface{} {
	lit := Cycle(runIndex, adversarialLiterals)
	switch s.Type {
	case "integer", "number":
		return lit // deliberately wrong type carrying an adversarial literal
	default:
		return lit
	}
}

func (g *Generator) unsatisfiableUnion(s *Schema) interface{} {
	// Construct a value that satisfies none of the branches: an object when
	// every branch wants a scalar, or vice versa.
	branches := s.OneOf
	if len(branches) == 0 {
		branches = s.AnyOf
	}
	wantsObject := false
	for _, b := range branches {
		if b.IsObject() {
			wantsObject = true
		}
	}
	if wantsObject {
		return 3.14159
	}
	return map[string]interface{}{"__unsatisfiable__": true}
}
