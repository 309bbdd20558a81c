package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Block is a fenced code block.
type Block struct {
	Lang string
	Code string
}

// CodeBlocks lists the closed fenced code blocks of text in order.
// Fences are runs of at least three backticks or tildes; a block is closed by a fence of
// the same character that is at least as long. Unclosed blocks are dropped.
func CodeBlocks(text string) []Block {
	var blocks []Block

	var (
		inBlock   bool
		fenceChar byte
		fenceLen  int
		lang      string
		body      []string
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")

		if !inBlock {
			c, n := fenceRun(trimmed)
			if n < 3 {
				continue
			}
			info := strings.TrimSpace(trimmed[n:])
			if c == '`' && strings.ContainsRune(info, '`') {
				continue
			}
			inBlock, fenceChar, fenceLen, body = true, c, n, nil
			lang = ""
			if fields := strings.Fields(info); len(fields) > 0 {
				lang = strings.ToLower(fields[0])
			}
			continue
		}

		if c, n := fenceRun(trimmed); c == fenceChar && n >= fenceLen && strings.TrimSpace(trimmed[n:]) == "" {
			code := strings.Join(body, "\n")
			if len(body) > 0 {
				code += "\n"
			}
			blocks = append(blocks, Block{Lang: lang, Code: code})
			inBlock = false
			continue
		}
		body = append(body, line)
	}

	return blocks
}

// CodeBlock returns the code of the first block whose language is one of langs
// (case-insensitive). With no langs, the first block of any language is returned.
func CodeBlock(text string, langs ...string) (string, error) {
	blocks := CodeBlocks(text)
	if len(blocks) == 0 {
		return "", errors.New("No fenced code block was found in your answer. Wrap the code in ``` fences.")
	}
	if len(langs) == 0 {
		return blocks[0].Code, nil
	}

	for _, b := range blocks {
		for _, l := range langs {
			if strings.EqualFold(b.Lang, l) {
				return b.Code, nil
			}
		}
	}
	return "", fmt.Errorf("No ```%s code block was found in your answer. Reply with the code in a ```%s fenced block.", langs[0], langs[0])
}

func fenceRun(s string) (byte, int) {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	c := s[0]
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return c, n
}
