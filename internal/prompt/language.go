package prompt

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".go":   "go",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".kt":   "kotlin",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "shellscript",
	".html": "html",
	".css":  "css",
	".json": "json",
	".md":   "markdown",
	".yml":  "yaml",
	".yaml": "yaml",
	".sql":  "sql",
}

// LanguageFor returns the language id for path's extension, or "plaintext".
func LanguageFor(path string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}
