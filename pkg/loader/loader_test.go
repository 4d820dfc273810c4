package loader

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDocument(t *testing.T) {
	content := `# Receiving pallets
This is the intro.

## Labels
Scan the label.

Some more label info.

## Empty section
## Damage
Move damaged pallets to bay 4.
`

	chunks := ChunkDocument("Receiving/pallets.md", content)
	require.Len(t, chunks, 3, "headings without text produce no chunk")

	assert.Equal(t, "This is the intro.", chunks[0].Text)
	assert.Equal(t, "Receiving/pallets.md#Receiving pallets", chunks[0].SourceLocator)
	assert.Equal(t, "Receiving/pallets.md#Labels", chunks[1].SourceLocator)
	assert.Contains(t, chunks[1].Text, "Scan the label.")
	assert.Contains(t, chunks[1].Text, "Some more label info.")
	assert.Equal(t, "Receiving/pallets.md#Damage", chunks[2].SourceLocator)

	for _, c := range chunks {
		assert.Equal(t, "Receiving", c.Module)
		assert.Equal(t, "Receiving pallets", c.DocTitle)
		assert.Equal(t, "Receiving/pallets.md", c.Path)
		assert.NotEmpty(t, c.ID)
	}
}

func TestChunkDocumentNoHeadings(t *testing.T) {
	chunks := ChunkDocument("forklift-checklist.md", "Just plain text with no headings.")
	require.Len(t, chunks, 1)

	assert.Equal(t, "forklift-checklist.md", chunks[0].SourceLocator)
	assert.Equal(t, "forklift-checklist", chunks[0].DocTitle)
	assert.Empty(t, chunks[0].Module)
}

func TestChunkIDsAreStable(t *testing.T) {
	content := "# A\none\n# B\ntwo\n"
	first := ChunkDocument("Picking/a.md", content)
	second := ChunkDocument("Picking/a.md", content)
	other := ChunkDocument("Packing/a.md", content)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}

func TestLoadAndChunkAll(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/Picking/zones.md":     {Data: []byte("# Zones\nPick zone A first.\n")},
		"docs/Equipment/scanner.md": {Data: []byte("# Scanner\nCharge overnight.\n")},
		"docs/README.txt":           {Data: []byte("not markdown")},
	}

	chunks, err := LoadAndChunkAll(fsys, "docs")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Equipment/scanner.md#Scanner", chunks[0].SourceLocator)
	assert.Equal(t, "Equipment", chunks[0].Module)
	assert.Equal(t, "Picking/zones.md#Zones", chunks[1].SourceLocator)
	assert.Equal(t, "Picking", chunks[1].Module)
}

func TestLoadDocumentsRootDot(t *testing.T) {
	fsys := fstest.MapFS{"Safety/ppe.md": {Data: []byte("Wear gloves.")}}

	docs, err := LoadDocuments(fsys, ".")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Safety/ppe.md": "Wear gloves."}, docs)
}
