// internal/expr/tokenize_test.go
package expr

import (
	"reflect"
	"testing"
)

func TestIdentifiers_ExcludesOperatorKeywords(t *testing.T) {
	got := Identifiers("temp > 10 and humidity < 50")
	want := []string{"temp", "humidity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_Dedup(t *testing.T) {
	got := Identifiers("a_b or a_b")
	want := []string{"a_b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_RemovesEveryKeywordOccurrence(t *testing.T) {
	got := Identifiers("a > 1 or b > 2 or c > 3 and d > 4 and e > 5")
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_NormalizedSignalNames(t *testing.T) {
	got := Identifiers("env_temperature > 25 and env_raingauge_onehour == 0")
	want := []string{"env_temperature", "env_raingauge_onehour"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_SingleLetter(t *testing.T) {
	got := Identifiers("x > 0")
	want := []string{"x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_IgnoresNotAndBoolLiterals(t *testing.T) {
	got := Identifiers("not (flag > 0) or true or false")
	want := []string{"flag"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_Empty(t *testing.T) {
	if got := Identifiers(""); len(got) != 0 {
		t.Errorf("Identifiers(\"\") = %v, want empty", got)
	}
}
