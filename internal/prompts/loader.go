// Package prompts provides a loader for externalized LLM prompt templates and stage definitions.
// Prompts are stored as JSON files and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// StagesFile holds the stage agent definitions; every other file is a flat key/template map.
const StagesFile = "stages.json"

// PipelineFile holds the orchestration templates.
const PipelineFile = "pipeline.json"

// Stage is the fixed role description and ordered instruction list of one stage agent
type Stage struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Instructions []string `json:"instructions"`
}

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]string)
	stages  map[string]Stage
	cacheMu sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "pipeline.json").
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// MustGet retrieves a prompt by filename and key, panicking if not found.
// Use this for prompts that are required at initialization time.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// GetStage returns the definition of a stage agent by key (e.g. "job-finder").
func GetStage(key string) (Stage, error) {
	all, err := loadStages()
	if err != nil {
		return Stage{}, err
	}
	stage, ok := all[key]
	if !ok {
		return Stage{}, fmt.Errorf("stage %q not found in %s", key, StagesFile)
	}
	return stage, nil
}

// MustGetStage is GetStage for definitions required at initialization time.
func MustGetStage(key string) Stage {
	stage, err := GetStage(key)
	if err != nil {
		panic(fmt.Sprintf("failed to load stage: %v", err))
	}
	return stage
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// This is a simple template system for prompt customization.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// FormatAll applies Format to every template in order.
func FormatAll(templates []string, data map[string]string) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = Format(t, data)
	}
	return out
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	if filename == StagesFile {
		return nil, fmt.Errorf("%s holds stage definitions, use GetStage", filename)
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

func loadStages() (map[string]Stage, error) {
	cacheMu.RLock()
	if stages != nil {
		defer cacheMu.RUnlock()
		return stages, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(StagesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", StagesFile, err)
	}
	var parsed map[string]Stage
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", StagesFile, err)
	}

	cacheMu.Lock()
	stages = parsed
	cacheMu.Unlock()
	return parsed, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	stages = nil
	cacheMu.Unlock()
}

// List returns all available prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	if filename == StagesFile {
		all, err := loadStages()
		if err != nil {
			return nil, err
		}
		return sortedKeys(all), nil
	}

	prompts, err := loadFile(filename)
	if err != nil {
		return nil, err
	}
	return sortedKeys(prompts), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
