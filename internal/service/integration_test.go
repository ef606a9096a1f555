package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/actions"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/config"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/ejson"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/git"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/testutil"
)

const integrationPublicKey = "6a2c1d0c5cb3f15a6e1a36b2f4a9c9f3e8d7b6a5f4e3d2c1b0a9f8e7d6c5b4a3"

func TestActionRun_DecryptWithStubTool(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	t.Setenv("DB_PASS", "")

	file := filepath.Join(env.Workspace, "secrets.ejson")
	testutil.WriteFile(t, file, `{"_public_key": "`+integrationPublicKey+`", "environment": {"DB_PASS": "EJ[1:abc]"}}`)

	decrypted := `{"_public_key": "` + integrationPublicKey + `", "environment": {"DB_PASS": "hunter2", "HOME": "/root"}}`
	bin := testutil.WriteScript(t, env.Root, "ejson", "cat <<'EOF'\n"+decrypted+"\nEOF\n")

	var stdout bytes.Buffer
	runtime := actions.NewRuntime(&stdout)
	logger := &testutil.RecordingLogger{}
	client := ejson.NewClient(ejson.Options{
		Backend:    config.BackendEjson,
		Binary:     bin,
		PrivateKey: "0000000000000000000000000000000000000000000000000000000000000001",
		KeyDir:     env.KeyDir,
		Logger:     logger,
	})

	in := config.Inputs{
		Action:          config.OperationDecrypt,
		FilePath:        file,
		PrivateKey:      "0000000000000000000000000000000000000000000000000000000000000001",
		PopulateEnvVars: true,
		OutFile:         filepath.Join(env.Workspace, ".secrets", "decrypted.json"),
	}

	action := NewAction(in, Deps{
		Invoker: client,
		Sink:    runtime,
		Ignore:  git.NewClient(env.Workspace),
		Logger:  logger,
		Root:    env.Workspace,
	})

	if _, err := action.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	key := testutil.ReadFile(t, filepath.Join(env.KeyDir, integrationPublicKey))
	if key != "0000000000000000000000000000000000000000000000000000000000000001" {
		t.Errorf("private key file = %q", key)
	}

	outputs := testutil.ReadFile(t, env.OutputFile)
	if !strings.Contains(outputs, "decrypted<<ghadelimiter_") || !strings.Contains(outputs, "hunter2") {
		t.Errorf("decrypted output missing from GITHUB_OUTPUT:\n%s", outputs)
	}

	exported := testutil.ReadFile(t, env.EnvFile)
	if !strings.Contains(exported, "DB_PASS<<ghadelimiter_") {
		t.Errorf("DB_PASS missing from GITHUB_ENV:\n%s", exported)
	}
	if strings.Contains(exported, "HOME<<") {
		t.Errorf("reserved HOME must not be exported:\n%s", exported)
	}
	if os.Getenv("DB_PASS") != "hunter2" {
		t.Errorf("DB_PASS not set for this process")
	}

	if !strings.Contains(stdout.String(), "::add-mask::hunter2\n") {
		t.Errorf("secret not masked, stdout:\n%s", stdout.String())
	}
	for _, line := range strings.Split(stdout.String(), "\n") {
		if !strings.HasPrefix(line, "::add-mask::") {
			continue
		}
		masked := strings.TrimPrefix(line, "::add-mask::")
		if strings.ContainsAny(masked, "{}") || strings.Contains(masked, integrationPublicKey) {
			t.Errorf("document structure must not be masked: %q", line)
		}
	}
	if got := testutil.ReadFile(t, in.OutFile); got != decrypted+"\n" {
		t.Errorf("out-file content = %q", got)
	}

	infos := strings.Join(logger.Messages("info"), "\n")
	if !strings.Contains(infos, "Decrypted successfully...") {
		t.Errorf("expected success message, got:\n%s", infos)
	}
}
