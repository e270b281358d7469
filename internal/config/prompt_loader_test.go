package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	globalSystem := writeFile(t, dir, "system.md", "  global system prompt \n")
	optimizeUser := writeFile(t, dir, "user.optimize.md", "optimize this: {{.ResumeText}}")

	cfg := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{SystemPromptFile: globalSystem},
			Optimize: OperationAIConfig{
				CustomPrompts: PromptConfig{UserPromptFile: optimizeUser},
			},
		},
	}

	require.NoError(t, cfg.validatePromptFiles())
	require.NoError(t, cfg.loadPromptsFromFiles())

	loaded := cfg.GetLoadedOptimizePrompts()
	assert.Equal(t, "global system prompt", loaded.SystemPrompt)
	assert.Equal(t, "optimize this: {{.ResumeText}}", loaded.UserPrompt)

	// paths stay in the config untouched
	assert.Equal(t, optimizeUser, cfg.AI.Optimize.CustomPrompts.UserPromptFile)
}

func TestValidatePromptFilesReportsMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{UserPromptFile: filepath.Join(dir, "missing-user.md")},
			Optimize: OperationAIConfig{
				CustomPrompts: PromptConfig{SystemPromptFile: filepath.Join(dir, "missing-system.md")},
			},
		},
	}

	err := cfg.validatePromptFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global user prompt file not found")
	assert.Contains(t, err.Error(), "optimize system prompt file not found")
}

func TestLoadPromptFromFileRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.md", "   \n\t")

	_, err := loadPromptFromFile(empty, "system", "optimize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}
