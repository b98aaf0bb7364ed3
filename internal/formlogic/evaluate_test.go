package formlogic

import (
	"slices"
	"testing"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

func cond(key string, op models.Operator, value any) models.Condition {
	return models.Condition{QuestionKey: key, Operator: op, Value: value}
}

func and(cs ...models.Condition) *models.ConditionalRules {
	return &models.ConditionalRules{Logic: models.LogicAnd, Conditions: cs}
}

func or(cs ...models.Condition) *models.ConditionalRules {
	return &models.ConditionalRules{Logic: models.LogicOr, Conditions: cs}
}

func TestShouldShow(t *testing.T) {
	tests := []struct {
		name    string
		rules   *models.ConditionalRules
		answers Answers
		want    bool
	}{
		{"no rules", nil, Answers{}, true},
		{"empty conditions", and(), Answers{}, true},
		{"empty conditions with nil answers", or(), nil, true},
		{
			"AND both true",
			and(cond("role", models.OpEquals, "Engineer"), cond("experience", models.OpEquals, "Senior")),
			Answers{"role": "Engineer", "experience": "Senior"},
			true,
		},
		{
			"AND one false",
			and(cond("role", models.OpEquals, "Engineer"), cond("experience", models.OpEquals, "Senior")),
			Answers{"role": "Engineer", "experience": "Junior"},
			false,
		},
		{
			"OR one true",
			or(cond("role", models.OpEquals, "Engineer"), cond("role", models.OpEquals, "Designer")),
			Answers{"role": "Engineer"},
			true,
		},
		{
			"OR both false",
			or(cond("role", models.OpEquals, "Engineer"), cond("role", models.OpEquals, "Designer")),
			Answers{"role": "Manager"},
			false,
		},
		{"contains in list", and(cond("skills", models.OpContains, "JavaScript")), Answers{"skills": []any{"JavaScript", "Python", "React"}}, true},
		{"contains missing from list", and(cond("skills", models.OpContains, "Go")), Answers{"skills": []any{"JavaScript", "Python"}}, false},
		{"contains in string list", and(cond("skills", models.OpContains, "Python")), Answers{"skills": []string{"JavaScript", "Python"}}, true},
		{"contains list is case sensitive", and(cond("skills", models.OpContains, "python")), Answers{"skills": []any{"Python"}}, false},
		{"contains string case insensitive", and(cond("description", models.OpContains, "engineer")), Answers{"description": "I am a software Engineer"}, true},
		{"contains string upper needle", and(cond("description", models.OpContains, "ENGINEER")), Answers{"description": "i am a software engineer"}, true},
		{"contains string miss", and(cond("description", models.OpContains, "designer")), Answers{"description": "I am a software engineer"}, false},
		{"contains non-string falls back to equality", and(cond("count", models.OpContains, 3.0)), Answers{"count": 3.0}, true},
		{"missing answer equals", and(cond("role", models.OpEquals, "Engineer")), Answers{}, false},
		{"missing answer notEquals", and(cond("role", models.OpNotEquals, "Engineer")), Answers{}, false},
		{"null answer contains", and(cond("role", models.OpContains, "x")), Answers{"role": nil}, false},
		{"not equals", and(cond("role", models.OpNotEquals, "Manager")), Answers{"role": "Engineer"}, true},
		{"not equals same", and(cond("role", models.OpNotEquals, "Engineer")), Answers{"role": "Engineer"}, false},
		{"equals lists as sets", and(cond("langs", models.OpEquals, []any{"b", "a"})), Answers{"langs": []any{"a", "b"}}, true},
		{"equals lists mixed slice types", and(cond("langs", models.OpEquals, []any{"b", "a"})), Answers{"langs": []string{"a", "b"}}, true},
		{"equals lists differ", and(cond("langs", models.OpEquals, []any{"a", "c"})), Answers{"langs": []any{"a", "b"}}, false},
		{"equals lists multiset", and(cond("langs", models.OpEquals, []any{"a", "b", "b"})), Answers{"langs": []any{"a", "a", "b"}}, false},
		{"equals lists length", and(cond("langs", models.OpEquals, []any{"a"})), Answers{"langs": []any{"a", "a"}}, false},
		{"notEquals lists as sets", and(cond("langs", models.OpNotEquals, []any{"b", "a"})), Answers{"langs": []any{"a", "b"}}, false},
		{"equals no coercion", and(cond("age", models.OpEquals, "3")), Answers{"age": 3.0}, false},
		{"equals list vs string", and(cond("langs", models.OpEquals, "a")), Answers{"langs": []any{"a"}}, false},
		{"unknown operator", and(cond("role", models.Operator("startsWith"), "E")), Answers{"role": "Engineer"}, false},
		{"unknown operator under OR", or(cond("role", models.Operator("gt"), "E"), cond("role", models.OpEquals, "Engineer")), Answers{"role": "Engineer"}, true},
		{"unknown logic is permissive", &models.ConditionalRules{Logic: "XOR", Conditions: []models.Condition{cond("role", models.OpEquals, "x")}}, Answers{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldShow(tc.rules, tc.answers); got != tc.want {
				t.Fatalf("ShouldShow() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestShouldShowCombinesConditions(t *testing.T) {
	c1 := cond("a", models.OpEquals, "x")
	c2 := cond("b", models.OpContains, "y")
	answerSets := []Answers{
		{},
		{"a": "x"},
		{"b": "why"},
		{"a": "x", "b": "YES"},
		{"a": "z", "b": "no"},
	}
	for _, answers := range answerSets {
		r1 := ShouldShow(and(c1), answers)
		r2 := ShouldShow(and(c2), answers)
		if got := ShouldShow(and(c1, c2), answers); got != (r1 && r2) {
			t.Fatalf("AND for %v = %v, want %v", answers, got, r1 && r2)
		}
		if got := ShouldShow(or(c1, c2), answers); got != (r1 || r2) {
			t.Fatalf("OR for %v = %v, want %v", answers, got, r1 || r2)
		}
	}
}

func TestShouldShowDoesNotMutateInputs(t *testing.T) {
	answer := []any{"c", "a", "b"}
	value := []any{"b", "c", "a"}
	rules := and(cond("letters", models.OpEquals, value))
	answers := Answers{"letters": answer}

	first := ShouldShow(rules, answers)
	second := ShouldShow(rules, answers)
	if !first || !second {
		t.Fatalf("expected set equality to hold on both calls, got %v and %v", first, second)
	}
	if !slices.Equal(answer, []any{"c", "a", "b"}) {
		t.Fatalf("answer list reordered: %v", answer)
	}
	if !slices.Equal(value, []any{"b", "c", "a"}) {
		t.Fatalf("condition value reordered: %v", value)
	}
}

func TestShouldShowIgnoresObjects(t *testing.T) {
	att := map[string]any{"url": "https://example.com/a.png"}
	rules := and(cond("files", models.OpContains, att))
	if ShouldShow(rules, Answers{"files": []any{att}}) {
		t.Fatal("objects must never compare strictly equal")
	}
	rules = and(cond("files", models.OpEquals, []any{map[string]any{"url": "u"}}))
	if !ShouldShow(rules, Answers{"files": []any{map[string]any{"url": "u"}}}) {
		t.Fatal("attachment lists with the same content should be set-equal")
	}
}
