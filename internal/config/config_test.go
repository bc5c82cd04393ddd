package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/soldiom/internal/config"
	"github.com/PabloGalante/soldiom/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SOLDIOM_MODE", "SOLDIOM_PORT", "PORT", "SOLDIOM_LLM_BACKEND", "GEMINI_API_KEY", "API_KEY",
		"SOLDIOM_GCP_PROJECT", "SOLDIOM_TEMPERATURE", "SOLDIOM_THINKING_BUDGET", "SOLDIOM_HISTORY_LIMIT",
		"SOLDIOM_HF_RPS", "SOLDIOM_HF_BURST", "SOLDIOM_HF_CODE_MODEL", "HF_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_LocalDefaultsToMock(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, config.BackendMock, cfg.LLMBackend)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.DefaultModelName, cfg.ModelName)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-6)
	assert.Equal(t, int32(1024), cfg.ThinkingBudget)
	assert.True(t, cfg.GoogleSearch)
	assert.Equal(t, 40, cfg.HistoryLimit)
	assert.Equal(t, "bigcode/starcoder2-15b", cfg.HFModels.Code)
}

func TestFromEnv_APIKeySelectsGemini(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "k1")
	t.Setenv("SOLDIOM_HF_CODE_MODEL", "my/coder")
	t.Setenv("HF_TOKEN", "hf_x")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, config.BackendGemini, cfg.LLMBackend)
	assert.Equal(t, "k1", cfg.APIKey)

	hf := cfg.HuggingFace()
	assert.Equal(t, "hf_x", hf.Token)
	assert.Equal(t, "my/coder", hf.Models.Code)

	t.Setenv("GEMINI_API_KEY", "k2")
	cfg, err = config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "k2", cfg.APIKey)
}

func TestFromEnv_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"gemini without key", map[string]string{"SOLDIOM_LLM_BACKEND": "gemini"}},
		{"vertex without project", map[string]string{"SOLDIOM_LLM_BACKEND": "vertex"}},
		{"mock in cloud", map[string]string{"SOLDIOM_MODE": "cloud", "SOLDIOM_LLM_BACKEND": "mock"}},
		{"unknown backend", map[string]string{"SOLDIOM_LLM_BACKEND": "llama"}},
		{"bad temperature", map[string]string{"SOLDIOM_TEMPERATURE": "hot"}},
		{"temperature out of range", map[string]string{"SOLDIOM_TEMPERATURE": "3"}},
		{"bad burst", map[string]string{"SOLDIOM_HF_BURST": "many"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadRoles(t *testing.T) {
	catalog, err := config.LoadRoles("")
	require.NoError(t, err)
	assert.Len(t, catalog.List(), len(domain.DefaultRoles()))

	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
roles:
  - id: doctor
    name: Family Physician
  - id: legal-researcher
    name: Legal Researcher
    description: Case law and statutes
    system_instruction: You research case law and cite the sources.
`), 0o600))

	catalog, err = config.LoadRoles(path)
	require.NoError(t, err)

	doc, err := catalog.Get(domain.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, "Family Physician", doc.Name)
	assert.NotEmpty(t, doc.SystemInstruction, "unset fields keep the built-in value")

	legal, err := catalog.Get("LEGAL_RESEARCHER")
	require.NoError(t, err)
	assert.Equal(t, "Case law and statutes", legal.Description)

	roles := catalog.List()
	assert.Equal(t, domain.RoleType("LEGAL_RESEARCHER"), roles[len(roles)-1].ID)
}

func TestLoadRoles_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := config.LoadRoles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noID := filepath.Join(dir, "noid.yaml")
	require.NoError(t, os.WriteFile(noID, []byte("roles:\n  - name: Nameless\n"), 0o600))
	_, err = config.LoadRoles(noID)
	assert.ErrorContains(t, err, "id is required")

	noInstr := filepath.Join(dir, "noinstr.yaml")
	require.NoError(t, os.WriteFile(noInstr, []byte("roles:\n  - id: chef\n"), 0o600))
	_, err = config.LoadRoles(noInstr)
	assert.ErrorContains(t, err, "system_instruction")

	_, err = config.ParseRoles([]byte("roles: [unterminated"))
	assert.Error(t, err)
}
