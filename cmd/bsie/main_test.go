package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
storage_dir = %q
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`,
		filepath.Join(base, "storage"),
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if cfgPath != "" {
		args = append([]string{"--config", cfgPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatesCommandPrintsCatalog(t *testing.T) {
	out, err := runCLI(t, "", "states")
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	for _, want := range []string{"Human Review Required", "UPLOADED", "ingest_receipt", "(terminal)"} {
		if !strings.Contains(out, want) {
			t.Errorf("states output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandFlow(t *testing.T) {
	cfgPath := writeTestConfig(t)

	pdf := filepath.Join(t.TempDir(), "statement.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n<< /Type /Page >>\n%%EOF"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, cfgPath, "add", pdf)
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	match := regexp.MustCompile(`stmt_[0-9a-f]+`).FindString(out)
	if match == "" {
		t.Fatalf("no statement id in add output: %s", out)
	}

	out, err = runCLI(t, cfgPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, match) || !strings.Contains(out, "Ingested") {
		t.Fatalf("list output:\n%s", out)
	}

	out, err = runCLI(t, cfgPath, "show", match)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "ingest_receipt") {
		t.Fatalf("show output missing artifact:\n%s", out)
	}

	out, err = runCLI(t, cfgPath, "transition", match, "CLASSIFIED",
		"--trigger", "classification_complete",
		"--artifact", "classification=/a/classification.json")
	if err != nil {
		t.Fatalf("transition: %v\n%s", err, out)
	}
	if !strings.Contains(out, "INGESTED -> CLASSIFIED") {
		t.Fatalf("transition output:\n%s", out)
	}

	// An illegal edge surfaces the rejection kind.
	_, err = runCLI(t, cfgPath, "transition", match, "COMPLETED", "--trigger", "skip")
	if err == nil || !strings.Contains(err.Error(), "invalid_transition") {
		t.Fatalf("expected invalid_transition, got %v", err)
	}

	out, err = runCLI(t, cfgPath, "force", match, "HUMAN_REVIEW_REQUIRED",
		"--reason", "manual check", "--actor", "ops")
	if err != nil {
		t.Fatalf("force: %v\n%s", err, out)
	}

	out, err = runCLI(t, cfgPath, "history", match)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"statement_created", "ingestion_complete", "forced_transition", "ops"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, cfgPath, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Human Review Required") {
		t.Fatalf("stats output:\n%s", out)
	}
}

func TestForceRequiresReason(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCLI(t, cfgPath, "force", "stmt_x", "COMPLETED")
	if err == nil || !strings.Contains(err.Error(), "--reason") {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigValidateShowsDefaults(t *testing.T) {
	out, err := runCLI(t, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Database:") {
		t.Fatalf("output:\n%s", out)
	}
}
