// Package loader reads markdown procedure documents and splits them into
// retrievable chunks.
package loader

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/perbu/dockhand/pkg/dockhand"
)

// LoadDocuments reads all markdown files below root and returns their
// contents keyed by path relative to root
func LoadDocuments(fsys fs.FS, root string) (map[string]string, error) {
	docs := make(map[string]string)

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		// Only process markdown files
		if !strings.HasSuffix(p, ".md") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		docs[relative(root, p)] = string(content)
		return nil
	})

	return docs, err
}

func relative(root, p string) string {
	if root == "." || root == "" {
		return p
	}
	return strings.TrimPrefix(p, strings.TrimSuffix(root, "/")+"/")
}

// ChunkDocument splits a document into chunks at markdown headings.
// The module is the first directory of relPath, the document title the
// first heading (or the file name), and each chunk is located by
// relPath#heading. Chunk ids are derived from path and offset; every
// chunk carries relPath so the store can replace a document as a whole.
func ChunkDocument(relPath, content string) []dockhand.Chunk {
	var chunks []dockhand.Chunk

	module := moduleOf(relPath)
	docTitle := ""

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentHeading string
	var currentContent strings.Builder
	var currentOffset int
	lineOffset := 0

	flushChunk := func() {
		text := strings.TrimSpace(currentContent.String())
		if text == "" {
			return
		}
		chunks = append(chunks, dockhand.Chunk{
			ID:            chunkID(relPath, currentOffset),
			Text:          text,
			SourceLocator: locator(relPath, currentHeading),
			Path:          relPath,
			Module:        module,
		})
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "#") {
			flushChunk()

			currentHeading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			if docTitle == "" {
				docTitle = currentHeading
			}
			currentContent.Reset()
			currentOffset = lineOffset
		} else {
			if currentContent.Len() > 0 {
				currentContent.WriteString("\n")
			}
			currentContent.WriteString(line)
		}

		lineOffset += len(line) + 1 // +1 for newline
	}

	flushChunk()

	if docTitle == "" {
		docTitle = strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	}
	for i := range chunks {
		chunks[i].DocTitle = docTitle
	}

	return chunks
}

// LoadAndChunkAll loads all documents and chunks them, ordered by path
func LoadAndChunkAll(fsys fs.FS, root string) ([]dockhand.Chunk, error) {
	docs, err := LoadDocuments(fsys, root)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var allChunks []dockhand.Chunk
	for _, p := range paths {
		allChunks = append(allChunks, ChunkDocument(p, docs[p])...)
	}

	return allChunks, nil
}

func moduleOf(relPath string) string {
	dir, _, found := strings.Cut(relPath, "/")
	if !found {
		return ""
	}
	return dir
}

func locator(relPath, heading string) string {
	if heading == "" {
		return relPath
	}
	return relPath + "#" + heading
}

func chunkID(relPath string, offset int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(relPath+"@"+strconv.Itoa(offset))).String()
}
