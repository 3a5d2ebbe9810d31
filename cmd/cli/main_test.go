package main

import (
	"testing"

	"github.com/keshon/discord-bot-shared/pkg/dispatch"
)

func TestParseScope(t *testing.T) {
	for in, want := range map[string]dispatch.Scope{"global": dispatch.ScopeGlobal, "guild": dispatch.ScopeGuild} {
		got, err := parseScope(in)
		if err != nil || got != want {
			t.Fatalf("parseScope(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseScope("everywhere"); err == nil {
		t.Fatal("invalid scope accepted")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"register", "unregister"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Fatalf("find %s: %v, %v", name, c, err)
		}
	}
	if root.PersistentFlags().Lookup("scope") == nil {
		t.Fatal("missing --scope flag")
	}
}
