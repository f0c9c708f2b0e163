package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ticketfixture/internal/domain"
	"ticketfixture/internal/stats"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func TestGenerateWritesFixture(t *testing.T) {
	ws := t.TempDir()
	out := filepath.Join(ws, "ticket.csv")
	msg, err := runCLI(t, "generate", "-w", ws, "--out", out, "--log-level", "error")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(msg, "wrote 100 tickets") {
		t.Fatalf("unexpected output %q", msg)
	}
	rows := readCSV(t, out)
	if len(rows) != 101 || len(rows[0]) != 27 || rows[0][0] != "id" {
		t.Fatalf("unexpected csv shape: %d rows", len(rows))
	}
	first, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "generate", "-w", ws, "--out", out, "--log-level", "error"); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	second, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("fixture not byte-identical across runs")
	}
}

func TestGenerateFlagsOverrideConfigFile(t *testing.T) {
	ws := t.TempDir()
	out := filepath.Join(ws, "ticket.csv")
	if err := os.WriteFile(filepath.Join(ws, "tf.yml"), []byte("generator:\n  count: 12\n  output: "+out+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "generate", "-w", ws, "--log-level", "error"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rows := readCSV(t, out); len(rows) != 13 {
		t.Fatalf("config count not applied: %d rows", len(rows))
	}
	if _, err := runCLI(t, "generate", "-w", ws, "--count", "4", "--log-level", "error"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rows := readCSV(t, out); len(rows) != 5 {
		t.Fatalf("flag count not applied: %d rows", len(rows))
	}
}

func TestGenerateFailsOnMissingDirectory(t *testing.T) {
	ws := t.TempDir()
	out := filepath.Join(ws, "missing", "ticket.csv")
	if _, err := runCLI(t, "generate", "-w", ws, "--out", out, "--log-level", "error"); err == nil {
		t.Fatalf("expected error for missing output directory")
	}
	if _, err := os.Stat(filepath.Dir(out)); !os.IsNotExist(err) {
		t.Fatalf("output directory should not be created")
	}
}

func TestStoredRunExportMatchesFixture(t *testing.T) {
	ws := t.TempDir()
	out := filepath.Join(ws, "ticket.csv")
	if _, err := runCLI(t, "generate", "-w", ws, "--out", out, "--count", "20", "--store", "--log-level", "error"); err != nil {
		t.Fatalf("generate --store: %v", err)
	}
	listed, err := runCLI(t, "runs", "list", "-w", ws, "--json", "--log-level", "error")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []domain.Run
	if err := json.Unmarshal([]byte(listed), &runs); err != nil {
		t.Fatalf("decode runs: %v (%s)", err, listed)
	}
	if len(runs) != 1 || runs[0].Count != 20 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	exported := filepath.Join(ws, "export.csv")
	if _, err := runCLI(t, "runs", "export", runs[0].ID, "-w", ws, "--out", exported, "--log-level", "error"); err != nil {
		t.Fatalf("runs export: %v", err)
	}
	a, _ := os.ReadFile(out)
	b, _ := os.ReadFile(exported)
	if !bytes.Equal(a, b) {
		t.Fatalf("exported run differs from generated fixture")
	}

	if _, err := runCLI(t, "runs", "delete", runs[0].ID, "-w", ws, "--log-level", "error"); err != nil {
		t.Fatalf("runs delete: %v", err)
	}
	if _, err := runCLI(t, "runs", "show", runs[0].ID, "-w", ws, "--log-level", "error"); err == nil {
		t.Fatalf("expected error showing deleted run")
	}
}

func TestStatsJSON(t *testing.T) {
	ws := t.TempDir()
	raw, err := runCLI(t, "stats", "-w", ws, "--json", "--count", "50", "--log-level", "error")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var s stats.Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Tickets != 50 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestPreviewAndConfig(t *testing.T) {
	ws := t.TempDir()
	table, err := runCLI(t, "preview", "-w", ws, "--limit", "3", "--log-level", "error")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(table, "STATUS") {
		t.Fatalf("preview table missing header: %q", table)
	}
	if _, err := runCLI(t, "config", "init", "-w", ws); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "-w", ws); err == nil {
		t.Fatalf("expected config init to refuse overwrite")
	}
	shown, err := runCLI(t, "config", "show", "-w", ws)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(shown, "seed: 42") || !strings.Contains(shown, "2024-06-01T10:00:00") {
		t.Fatalf("unexpected config %q", shown)
	}
}

func TestInvalidReferenceIsRejected(t *testing.T) {
	if _, err := runCLI(t, "preview", "-w", t.TempDir(), "--reference", "soon"); err == nil {
		t.Fatalf("expected error for bad reference")
	}
}
