package flows

import (
	"path/filepath"
	"strings"
)

// Language describes how code of a source file is fenced in answers.
type Language struct {
	Name    string
	Fence   string   // info string asked for
	Aliases []string // info strings accepted
}

var languages = map[string]Language{
	".go":   {Name: "Go", Fence: "go", Aliases: []string{"go", "golang"}},
	".rs":   {Name: "Rust", Fence: "rust", Aliases: []string{"rust", "rs"}},
	".py":   {Name: "Python", Fence: "python", Aliases: []string{"python", "py"}},
	".ts":   {Name: "TypeScript", Fence: "typescript", Aliases: []string{"typescript", "ts"}},
	".tsx":  {Name: "TypeScript", Fence: "tsx", Aliases: []string{"tsx", "typescript", "ts"}},
	".js":   {Name: "JavaScript", Fence: "javascript", Aliases: []string{"javascript", "js"}},
	".java": {Name: "Java", Fence: "java", Aliases: []string{"java"}},
	".cs":   {Name: "C#", Fence: "csharp", Aliases: []string{"csharp", "cs", "c#"}},
	".kt":   {Name: "Kotlin", Fence: "kotlin", Aliases: []string{"kotlin", "kt"}},
	".rb":   {Name: "Ruby", Fence: "ruby", Aliases: []string{"ruby", "rb"}},
}

// LanguageOf guesses the language of file from its extension. Unknown extensions accept
// any fenced block.
func LanguageOf(file string) Language {
	if lang, ok := languages[strings.ToLower(filepath.Ext(file))]; ok {
		return lang
	}
	return Language{}
}
