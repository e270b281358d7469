package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompts holds prompt text read from files
type LoadedPrompts struct {
	SystemPrompt string
	UserPrompt   string
}

var (
	loadedPromptsMu sync.RWMutex
	loadedPrompts   = map[string]LoadedPrompts{}
)

const (
	promptScopeGlobal   = "global"
	promptScopeOptimize = "optimize"
)

// GetLoadedOptimizePrompts returns the file-loaded prompts for optimization,
// falling back to the global prompt files
func (c *Config) GetLoadedOptimizePrompts() LoadedPrompts {
	loadedPromptsMu.RLock()
	defer loadedPromptsMu.RUnlock()

	result := loadedPrompts[promptScopeOptimize]
	global := loadedPrompts[promptScopeGlobal]
	if result.SystemPrompt == "" {
		result.SystemPrompt = global.SystemPrompt
	}
	if result.UserPrompt == "" {
		result.UserPrompt = global.UserPrompt
	}
	return result
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	scopes := map[string]PromptConfig{
		promptScopeGlobal:   c.AI.CustomPrompts,
		promptScopeOptimize: c.AI.Optimize.CustomPrompts,
	}

	loaded := make(map[string]LoadedPrompts, len(scopes))
	count := 0
	for scope, prompts := range scopes {
		var lp LoadedPrompts
		var err error
		if prompts.SystemPromptFile != "" {
			if lp.SystemPrompt, err = loadPromptFromFile(prompts.SystemPromptFile, "system", scope); err != nil {
				return err
			}
			count++
		}
		if prompts.UserPromptFile != "" {
			if lp.UserPrompt, err = loadPromptFromFile(prompts.UserPromptFile, "user", scope); err != nil {
				return err
			}
			count++
		}
		loaded[scope] = lp
	}

	loadedPromptsMu.Lock()
	loadedPrompts = loaded
	loadedPromptsMu.Unlock()

	if count == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in or inline prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", count)
	}
	return nil
}

// loadPromptFromFile reads and trims a prompt file, rejecting empty files
func loadPromptFromFile(filePath, promptType, scope string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", scope, promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", scope, promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", scope, promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", scope, promptType, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)", scope, promptType, absPath, len(trimmed))
	return trimmed, nil
}

// validatePromptFiles reports every missing prompt file at once
func (c *Config) validatePromptFiles() error {
	var problems []string

	check := func(filePath, label string) {
		if filePath == "" {
			return
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid path for %s prompt: %s", label, filePath))
			return
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s prompt file not found: %s", label, absPath))
		}
	}

	check(c.AI.CustomPrompts.SystemPromptFile, "global system")
	check(c.AI.CustomPrompts.UserPromptFile, "global user")
	check(c.AI.Optimize.CustomPrompts.SystemPromptFile, "optimize system")
	check(c.AI.Optimize.CustomPrompts.UserPromptFile, "optimize user")

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}
