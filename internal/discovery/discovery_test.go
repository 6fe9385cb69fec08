package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mdkb-mcp/internal/github"
	"github.com/dshills/mdkb-mcp/internal/storage"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

type fakeSource struct {
	entries []github.TreeEntry
	err     error
	calls   int
}

func (f *fakeSource) Tree(ctx context.Context, owner, repo, branch string) ([]github.TreeEntry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeRecorder struct {
	scans []*storage.Scan
}

func (f *fakeRecorder) RecordScan(ctx context.Context, scan *storage.Scan) error {
	f.scans = append(f.scans, scan)
	return nil
}

func blob(p string) github.TreeEntry { return github.TreeEntry{Path: p, Type: github.TypeBlob} }
func dir(p string) github.TreeEntry  { return github.TreeEntry{Path: p, Type: github.TypeTree} }

func visionKB() types.KnowledgeBase {
	return types.KnowledgeBase{
		ID: "lore", Name: "World Lore",
		Owner: "acme", Repo: "worldbuilding", Branch: "main",
		Path: "./vision",
	}
}

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"merchant-enlil-bani", "Merchant Enlil Bani"},
		{"a", "A"},
		{"readme", "Readme"},
		{"already-Capital", "Already Capital"},
		{"double--hyphen", "Double Hyphen"},
		{"", ""},
		{"émile-zola", "Émile Zola"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTitle(tt.in))
		})
	}
}

func TestNormalizeScope(t *testing.T) {
	tests := map[string]string{
		"":            "",
		".":           "",
		"/":           "",
		"./":          "",
		"./vision":    "vision",
		"vision/":     "vision",
		"/vision":     "vision",
		"docs/guides": "docs/guides",
		" ./docs ":    "docs",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeScope(in), "NormalizeScope(%q)", in)
	}
}

func TestDocuments_Scoping(t *testing.T) {
	entries := []github.TreeEntry{
		dir("vision"),
		blob("vision/notes/a.md"),
		blob("vision/merchant-enlil-bani.md"),
		blob("vision/image.png"),
		blob("visionary/b.md"),
		blob("README.md"),
		dir("vision/folder.md"),
	}

	docs := Documents(visionKB(), entries)
	require.Len(t, docs, 2)

	assert.Equal(t, "notes/a", docs[0].Name)
	assert.Equal(t, "A", docs[0].Title)
	assert.Equal(t, "vision/notes/a.md", docs[0].Path)
	assert.Equal(t, "lore", docs[0].KnowledgeBase)
	assert.Equal(t, "A from World Lore", docs[0].Description)

	assert.Equal(t, "merchant-enlil-bani", docs[1].Name)
	assert.Equal(t, "Merchant Enlil Bani", docs[1].Title)
}

func TestDocuments_EmptyScopeIsWholeRepo(t *testing.T) {
	kb := visionKB()
	kb.Path = ""

	docs := Documents(kb, []github.TreeEntry{
		blob("README.md"),
		blob("vision/notes/a.md"),
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "README", docs[0].Name)
	assert.Equal(t, "vision/notes/a", docs[1].Name)
}

func TestDocuments_PreservesEnumerationOrder(t *testing.T) {
	docs := Documents(visionKB(), []github.TreeEntry{
		blob("vision/zeta.md"),
		blob("vision/alpha.md"),
		blob("vision/mid.md"),
	})

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestDiscover(t *testing.T) {
	source := &fakeSource{entries: []github.TreeEntry{blob("vision/notes/a.md")}}
	recorder := &fakeRecorder{}
	svc := NewService(source, recorder)

	docs, err := svc.Discover(context.Background(), visionKB())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes/a", docs[0].Name)

	require.Len(t, recorder.scans, 1)
	assert.Equal(t, "lore", recorder.scans[0].KnowledgeBase)
	assert.Equal(t, 1, recorder.scans[0].DocumentCount)
	assert.True(t, recorder.scans[0].Succeeded())
}

func TestDiscover_FailureYieldsEmptyList(t *testing.T) {
	source := &fakeSource{err: errors.New("api error 500")}
	recorder := &fakeRecorder{}
	svc := NewService(source, recorder)

	docs, err := svc.Discover(context.Background(), visionKB())
	assert.ErrorIs(t, err, types.ErrDiscoveryFailure)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	require.Len(t, recorder.scans, 1)
	assert.False(t, recorder.scans[0].Succeeded())
	assert.Contains(t, recorder.scans[0].Error, "api error 500")
}

func TestDiscover_NilRecorder(t *testing.T) {
	svc := NewService(&fakeSource{err: errors.New("boom")}, nil)

	docs, err := svc.Discover(context.Background(), visionKB())
	assert.Error(t, err)
	assert.Empty(t, docs)
}
