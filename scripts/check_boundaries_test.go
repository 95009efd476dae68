package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepositoryContextsRespectBoundaries(t *testing.T) {
	violations, err := collectViolations(filepath.Join("..", "contexts"))
	if err != nil {
		t.Fatalf("collect violations: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
	}
}

func TestCollectViolationsFlagsForbiddenImports(t *testing.T) {
	root := t.TempDir()
	write := func(rel string, body string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("governance/voting-dao/domain/entities/bad.go", `package entities

import _ "github.com/google/uuid"
`)
	write("governance/voting-dao/application/commands/bad.go", `package commands

import (
	_ "votingdao/contexts/governance/voting-dao/adapters/memory"
	_ "votingdao/internal/platform/config"
	_ "votingdao/contexts/governance/voting-dao/ports"
)
`)
	write("governance/voting-dao/ports/bad.go", `package ports

import _ "votingdao/contexts/governance/other/domain"
`)
	write("governance/voting-dao/adapters/memory/ok.go", `package memory

import _ "github.com/google/uuid"
`)

	violations, err := collectViolations(root)
	if err != nil {
		t.Fatalf("collect violations: %v", err)
	}

	rules := map[string]int{}
	for _, v := range violations {
		rules[v.Rule]++
	}
	expected := map[string]int{
		"domain import is outside explicit allowlist":        1,
		"application must not import adapters":               1,
		"application must not import runtime infrastructure": 1,
		"application import is outside explicit allowlist":   2,
		"cross-module imports are forbidden":                 1,
		"ports import is outside explicit allowlist":         1,
	}
	for rule, count := range expected {
		if rules[rule] != count {
			t.Fatalf("expected %d violation(s) for %q, got %d (all: %+v)", count, rule, rules[rule], violations)
		}
	}
	if len(violations) != 7 {
		t.Fatalf("expected 7 violations, got %d: %+v", len(violations), violations)
	}
}

func TestIsStdlib(t *testing.T) {
	cases := map[string]bool{
		"context":                   true,
		"encoding/json":             true,
		"github.com/google/uuid":    false,
		"votingdao/internal/config": false,
		"votingdao":                 false,
	}
	for path, want := range cases {
		if got := isStdlib(path); got != want {
			t.Fatalf("isStdlib(%q) = %v, want %v", path, got, want)
		}
	}
}
