package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidBank(t *testing.T) {
	path := writeYAML(t, `
title: "Тест"
questions:
  - ordinal: 1
    text: "Выберите вариант"
    kind: choice
    options: ["A", "B"]
  - ordinal: 2
    text: "Опишите своими словами"
    kind: free_text
`)

	bank, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bank.Count())

	q, ok := bank.Get(1)
	require.True(t, ok)
	assert.Equal(t, KindChoice, q.Kind)
	assert.Equal(t, []string{"A", "B"}, q.Options)

	q, ok = bank.Get(2)
	require.True(t, ok)
	assert.Equal(t, KindFreeText, q.Kind)

	_, ok = bank.Get(0)
	assert.False(t, ok)
	_, ok = bank.Get(3)
	assert.False(t, ok)
}

func TestLoadEmptyBankIsValid(t *testing.T) {
	path := writeYAML(t, `title: "Пусто"`)

	bank, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, bank.Count())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "не YAML",
			yaml: "{{{",
		},
		{
			name: "неверный ordinal",
			yaml: `
questions:
  - ordinal: 2
    text: "q"
    kind: free_text
`,
		},
		{
			name: "пустой text",
			yaml: `
questions:
  - ordinal: 1
    text: ""
    kind: free_text
`,
		},
		{
			name: "choice без options",
			yaml: `
questions:
  - ordinal: 1
    text: "q"
    kind: choice
`,
		},
		{
			name: "пустой вариант",
			yaml: `
questions:
  - ordinal: 1
    text: "q"
    kind: choice
    options: ["A", ""]
`,
		},
		{
			name: "free_text с options",
			yaml: `
questions:
  - ordinal: 1
    text: "q"
    kind: free_text
    options: ["A"]
`,
		},
		{
			name: "неизвестный kind",
			yaml: `
questions:
  - ordinal: 1
    text: "q"
    kind: rating
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFeedbackBank(t *testing.T) {
	bank := FeedbackBank()
	require.Equal(t, 2, bank.Count())
	for i := 1; i <= 2; i++ {
		q, ok := bank.Get(i)
		require.True(t, ok)
		assert.Equal(t, KindFreeText, q.Kind)
	}
}
