// Package filereader implements the File Reader Tool (spec.md §4.6): it
// opens a bounded line range of a sandboxed file as text, enforcing the
// byte-budget truncation and clamping rules.
package filereader

import (
	"bufio"
	"bytes"
	"os"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/sandbox"
)

const (
	maxEndLineSpan   = 199
	defaultEndSpan   = 50
	defaultMaxBytes  = 200_000
	maxMaxBytes      = 1_000_000
)

// Tool reads bounded line ranges from files inside a Sandbox.
type Tool struct {
	sandbox *sandbox.Sandbox
}

// New builds a Tool backed by the given Sandbox.
func New(sb *sandbox.Sandbox) *Tool {
	return &Tool{sandbox: sb}
}

// Read validates and clamps the requested range (clamping endLine to
// startLine+199 and maxBytes to 1,000,000), resolves the file through the
// sandbox, classifies it as text, and streams the requested lines.
func (t *Tool) Read(req model.FileRange) (*model.FileResponse, error) {
	if req.StartLine < 0 || req.EndLine < 0 {
		return nil, model.NewError(model.CodeBadRequest, "startLine and endLine must be non-negative integers")
	}
	startLine := req.StartLine
	if startLine == 0 {
		startLine = 1
	}
	endLine := req.EndLine
	if endLine == 0 {
		endLine = startLine + defaultEndSpan
	}
	if endLine < startLine {
		return nil, model.NewError(model.CodeBadRequest, "endLine must be >= startLine")
	}
	if endLine > startLine+maxEndLineSpan {
		endLine = startLine + maxEndLineSpan
	}

	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if maxBytes > maxMaxBytes {
		maxBytes = maxMaxBytes
	}

	path, err := t.sandbox.Resolve(req.Repo, req.Path)
	if err != nil {
		return nil, err
	}
	if err := sandbox.ClassifyText(path); err != nil {
		return nil, err
	}

	return readRange(path, startLine, endLine, maxBytes)
}

func readRange(path string, startLine, endLine, maxBytes int) (*model.FileResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.Wrap(model.CodeInternal, "open file", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var buf bytes.Buffer
	lineNo := 0
	emittedEnd := startLine - 1
	truncated := false
	reachedEOF := false

loop:
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if bytes.IndexByte(line, 0) >= 0 {
			return nil, model.NewError(model.CodeUnsupportedMedia, "file contains binary (NUL) content")
		}
		if lineNo < startLine {
			continue
		}
		if lineNo > endLine {
			break loop
		}

		candidateLen := buf.Len() + len(line) + 1
		if candidateLen > maxBytes {
			remaining := maxBytes - buf.Len()
			if remaining > 0 {
				buf.Write(line[:min(remaining, len(line))])
			}
			truncated = true
			emittedEnd = lineNo
			break loop
		}

		buf.Write(line)
		buf.WriteByte('\n')
		emittedEnd = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, model.Wrap(model.CodeInternal, "scan file", err)
	}
	if !truncated {
		// Determine whether the scan reached EOF by continuing to count
		// lines past endLine; totalLines is only meaningful when it did.
		for scanner.Scan() {
			lineNo++
			if bytes.IndexByte(scanner.Bytes(), 0) >= 0 {
				return nil, model.NewError(model.CodeUnsupportedMedia, "file contains binary (NUL) content")
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, model.Wrap(model.CodeInternal, "scan file", err)
		}
		reachedEOF = true
	}

	resp := &model.FileResponse{
		StartLine: startLine,
		EndLine:   emittedEnd,
		Text:      buf.String(),
		Truncated: truncated,
	}
	if reachedEOF {
		total := lineNo
		resp.TotalLines = &total
	}
	return resp, nil
}

