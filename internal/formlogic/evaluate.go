// Package formlogic decides which questions of a form are visible for a given
// set of answers and validates submissions against the visible questions.
//
// Everything here is pure: no I/O, no shared state, inputs are never mutated.
package formlogic

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

// Answers maps question keys to the submitter's current answers. Values are
// strings, lists of strings, or lists of attachment objects as decoded from JSON.
type Answers map[string]any

// ShouldShow reports whether a question guarded by rules is visible.
// A missing rule set, or one without conditions, is always visible. An
// unrecognized logic value is treated as visible as well.
func ShouldShow(rules *models.ConditionalRules, answers Answers) bool {
	if rules == nil || len(rules.Conditions) == 0 {
		return true
	}

	switch rules.Logic {
	case models.LogicAnd:
		for _, c := range rules.Conditions {
			if !evalCondition(c, answers) {
				return false
			}
		}
		return true
	case models.LogicOr:
		for _, c := range rules.Conditions {
			if evalCondition(c, answers) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// evalCondition is false whenever the referenced answer is missing.
func evalCondition(c models.Condition, answers Answers) bool {
	answer, ok := answers[c.QuestionKey]
	if !ok || isNil(answer) {
		return false
	}

	switch c.Operator {
	case models.OpEquals:
		return equals(answer, c.Value)
	case models.OpNotEquals:
		return !equals(answer, c.Value)
	case models.OpContains:
		return contains(answer, c.Value)
	default:
		return false
	}
}

func equals(answer, value any) bool {
	a, aList := asList(answer)
	b, bList := asList(value)
	if aList && bList {
		return sameElements(a, b)
	}
	return strictEqual(answer, value)
}

func contains(answer, value any) bool {
	if list, ok := asList(answer); ok {
		for _, el := range list {
			if strictEqual(el, value) {
				return true
			}
		}
		return false
	}
	if s, ok := answer.(string); ok {
		fold := cases.Fold()
		return strings.Contains(fold.String(s), fold.String(stringify(value)))
	}
	return strictEqual(answer, value)
}

// sameElements compares two lists as multisets.
func sameElements(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	ka, kb := sortedKeys(a), sortedKeys(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

// sortedKeys returns the canonical encodings of list elements, sorted. The
// encoding keeps the dynamic type visible, so "1" and 1 stay distinct.
func sortedKeys(list []any) []string {
	keys := make([]string, len(list))
	for i, el := range list {
		data, err := json.Marshal(el)
		if err != nil {
			keys[i] = fmt.Sprintf("%#v", el)
			continue
		}
		keys[i] = string(data)
	}
	slices.Sort(keys)
	return keys
}

// strictEqual requires the same dynamic type and value. Lists and objects are
// never strictly equal to anything.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

// asList copies any slice or array value into a []any. Byte slices are not lists.
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		return slices.Clone(list), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	if list, ok := asList(v); ok {
		parts := make([]string, len(list))
		for i, el := range list {
			if el != nil {
				parts[i] = stringify(el)
			}
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}
