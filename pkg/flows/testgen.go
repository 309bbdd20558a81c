package flows

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/skarllot/flow-pair/pkg/chat"
	"github.com/skarllot/flow-pair/pkg/extract"
	"github.com/skarllot/flow-pair/pkg/llm"
	"github.com/skarllot/flow-pair/pkg/orchestrator"
)

// Output keys of the test generation script.
const (
	TestPathKey = "test_path"
	TestCodeKey = "test_code"
)

// TestFile is a generated test source file.
type TestFile struct {
	Path string `json:"path" yaml:"path"`
	Code string `json:"code" yaml:"code"`
}

const testGenSystem = `You are a senior software engineer writing unit tests.
Follow the conventions of the project shown to you: test framework, file layout and naming.
Tests must compile and must not depend on network access.`

// TestGenScript returns the script that writes tests for target, a path relative to the
// project root.
func TestGenScript(target, extraSystem string) orchestrator.Script {
	lang := LanguageOf(target)
	fence := "```"
	if lang.Fence != "" {
		fence += lang.Fence
	}
	kind := "test file"
	if lang.Name != "" {
		kind = lang.Name + " test file"
	}

	return orchestrator.Script{
		Name:   "test",
		System: joinSystem(testGenSystem, extraSystem),
		Model:  llm.ModelDefault,
		Instructions: []chat.Instruction{
			chat.Step{Text: fmt.Sprintf("Study %s and list the behaviours worth testing, "+
				"including edge cases and error paths. Mention which test framework the project uses.", target)},
			chat.JSONConvert{
				OutputKey: TestPathKey,
				Text:      fmt.Sprintf("Where should the tests for %s live? Give a path relative to the project root.", target),
				Schema:    `Use exactly this JSON shape: {"path": "relative/path/to/the/test/file"}`,
				Model:     llm.ModelFast,
			},
			chat.CodeExtract{
				OutputKey: TestCodeKey,
				Text: fmt.Sprintf("Write the complete %s. Reply with the whole file content "+
					"in a single %s fenced code block.", kind, fence),
			},
		},
		Parser: chat.KeyedParser{
			TestPathKey: ParseTestPath,
			TestCodeKey: codeParser(lang),
		},
	}
}

// ParseTestPath decodes {"path": ...} and rejects absolute or escaping paths.
func ParseTestPath(raw string) (any, error) {
	v, err := extract.JSONObject[struct {
		Path string `json:"path"`
	}](raw)
	if err != nil {
		return nil, err
	}

	p := strings.TrimSpace(filepath.ToSlash(v.Path))
	switch {
	case p == "":
		return nil, errors.New("The \"path\" field is empty. Reply with a relative file path.")
	case path.IsAbs(p) || filepath.IsAbs(v.Path):
		return nil, fmt.Errorf("The path %q is absolute. Reply with a path relative to the project root.", p)
	case strings.HasPrefix(path.Clean(p), ".."):
		return nil, fmt.Errorf("The path %q leaves the project root. Reply with a path inside the project.", p)
	}
	return path.Clean(p), nil
}

func codeParser(lang Language) chat.ParseFunc {
	return func(raw string) (any, error) {
		code, err := extract.CodeBlock(raw, lang.Aliases...)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(code) == "" {
			return nil, errors.New("The code block is empty. Reply with the complete test file.")
		}
		return code, nil
	}
}

// TestGenResult compiles the generated file from the first thread holding each output.
func TestGenResult(ws chat.Workspace) (TestFile, error) {
	p, err := orchestrator.FirstPresent[string](ws, TestPathKey)
	if err != nil {
		return TestFile{}, err
	}
	code, err := orchestrator.FirstPresent[string](ws, TestCodeKey)
	if err != nil {
		return TestFile{}, err
	}
	return TestFile{Path: p, Code: code}, nil
}
