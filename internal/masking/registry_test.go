package masking

import (
	"testing"

	"go.uber.org/zap"
)

func TestRegistry(t *testing.T) {
	t.Run("InsertionOrderPreserved", func(t *testing.T) {
		registry := NewRegistry(zap.NewNop())
		registry.Add(&stubRecognizer{name: "first"})
		registry.Add(&stubRecognizer{name: "second"})
		registry.Add(&stubRecognizer{name: "third"})

		names := registry.Names()
		if len(names) != 3 {
			t.Fatalf("Expected 3 names, got %d", len(names))
		}
		expected := []string{"first", "second", "third"}
		for i, name := range expected {
			if names[i] != name {
				t.Errorf("Position %d: expected %s, got %s", i, name, names[i])
			}
		}
	})

	t.Run("AddReplacesInPlace", func(t *testing.T) {
		registry := NewRegistry(zap.NewNop())
		original := &stubRecognizer{name: "middle"}
		replacement := &stubRecognizer{name: "middle"}
		registry.Add(&stubRecognizer{name: "first"})
		registry.Add(original)
		registry.Add(&stubRecognizer{name: "last"})

		registry.Add(replacement)

		if registry.Len() != 3 {
			t.Errorf("Replacement should not grow the registry, got %d", registry.Len())
		}
		names := registry.Names()
		if names[1] != "middle" {
			t.Errorf("Replacement should keep position, got order %v", names)
		}
		got, ok := registry.Get("middle")
		if !ok {
			t.Fatal("Expected middle to be present")
		}
		if got != Recognizer(replacement) {
			t.Error("Expected the replacement instance to be registered")
		}
	})

	t.Run("RemoveExisting", func(t *testing.T) {
		registry := NewRegistry(zap.NewNop())
		registry.Add(&stubRecognizer{name: "a"})
		registry.Add(&stubRecognizer{name: "b"})

		if !registry.Remove("a") {
			t.Error("Expected Remove to report success")
		}
		if registry.Len() != 1 {
			t.Errorf("Expected 1 recognizer left, got %d", registry.Len())
		}
		if _, ok := registry.Get("a"); ok {
			t.Error("Removed recognizer still retrievable")
		}
		if registry.Names()[0] != "b" {
			t.Errorf("Unexpected remaining order: %v", registry.Names())
		}
	})

	t.Run("RemoveAbsentIsNoOp", func(t *testing.T) {
		registry := NewRegistry(zap.NewNop())
		registry.Add(&stubRecognizer{name: "a"})

		if registry.Remove("ghost") {
			t.Error("Expected Remove of absent name to report false")
		}
		if registry.Len() != 1 {
			t.Errorf("Registry size changed: %d", registry.Len())
		}
	})

	t.Run("ListMatchesOrder", func(t *testing.T) {
		registry := NewRegistry(zap.NewNop())
		registry.Add(&stubRecognizer{name: "x"})
		registry.Add(&stubRecognizer{name: "y"})

		list := registry.List()
		if len(list) != 2 || list[0].Name() != "x" || list[1].Name() != "y" {
			t.Errorf("Unexpected list order: %v", registry.Names())
		}
	})
}
