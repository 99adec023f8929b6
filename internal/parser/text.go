package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TextParser handles plain text files. Each blank-line-separated paragraph
// becomes one unit with a para-N reference.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]Unit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(paragraphs))
	for i, para := range paragraphs {
		units = append(units, Unit{
			Text: para,
			Ref:  fmt.Sprintf("para-%d", i+1),
		})
	}
	return units, nil
}
