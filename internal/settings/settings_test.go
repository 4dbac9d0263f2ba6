package settings

import (
	"context"
	"reflect"
	"testing"

	"github.com/alexedwards/scs/v2"

	"aloniva/models"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()

	if got := LastFormula(ctx, s); got != "" {
		t.Fatalf("LastFormula() = %q, want empty", got)
	}
	if got := Theme(ctx, s); got != models.DefaultTheme {
		t.Fatalf("Theme() = %q, want %q", got, models.DefaultTheme)
	}

	SetLastFormula(ctx, s, " f-1 ")
	if got := SetTheme(ctx, s, "DARK"); got != models.ThemeDark {
		t.Fatalf("SetTheme() = %q, want %q", got, models.ThemeDark)
	}
	if got := LastFormula(ctx, s); got != "f-1" {
		t.Fatalf("LastFormula() = %q, want f-1", got)
	}
	if got := Theme(ctx, s); got != models.ThemeDark {
		t.Fatalf("Theme() = %q, want dark", got)
	}
	if got := s.Keys(ctx); !reflect.DeepEqual(got, []string{KeyLastFormula, KeyTheme}) {
		t.Fatalf("Keys() = %v", got)
	}
}

func TestSessionStore(t *testing.T) {
	t.Parallel()

	sm := scs.New()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := NewSession(sm)

	if _, ok := s.Get(ctx, KeyTheme); ok {
		t.Fatalf("Get() on empty session = ok")
	}
	SetTheme(ctx, s, "galaxy")
	if got := Theme(ctx, s); got != models.DefaultTheme {
		t.Fatalf("Theme() = %q, want %q", got, models.DefaultTheme)
	}
	SetLastFormula(ctx, s, "f-2")
	sm.Put(ctx, "auth:user:id", 7)

	if got := LastFormula(ctx, s); got != "f-2" {
		t.Fatalf("LastFormula() = %q, want f-2", got)
	}
	if got := s.Keys(ctx); !reflect.DeepEqual(got, []string{KeyLastFormula, KeyTheme}) {
		t.Fatalf("Keys() = %v, want settings keys only", got)
	}
}
