package manifest_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/refold/pkg/edits"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/manifest"
	"github.com/arthur-debert/refold/pkg/sources"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadManifest(t *testing.T, path string) (*manifest.Manifest, *manifest.Loader) {
	t.Helper()
	loader := manifest.NewLoader()
	m, err := loader.Load(path, true, "")
	require.NoError(t, err)
	return m, loader
}

func TestParse(t *testing.T) {
	m, err := manifest.Parse([]byte(`
default_tags = ["base"]

[variables]
host = "example.org"

[[file]]
path = "etc/motd"
tags = ["unix"]

[[file.sources]]
type = "text"
content = "welcome to {{host}}"

[[file.edit]]
type = "replace"
from = "welcome"
to = "hello"

[[directory]]
path = "certs"
count = 2
ignore_hidden = true

[[directory.sources]]
type = "local"
path = "/srv/certs"

[[include]]
config = "/srv/manifests/shared.toml"
path = "shared"
tags = ["extra"]
with_tags = ["unix"]
`))
	require.NoError(t, err)

	require.Len(t, m.Files, 1)
	assert.Equal(t, "etc/motd", m.Files[0].Path)
	assert.Equal(t, []string{"unix"}, m.Files[0].Tags)
	require.Len(t, m.Files[0].Sources, 1)
	require.Len(t, m.Files[0].Edits, 1)

	require.Len(t, m.Directories, 1)
	require.NotNil(t, m.Directories[0].Count)
	assert.Equal(t, 2, *m.Directories[0].Count)
	assert.True(t, m.Directories[0].IgnoreHidden)

	require.Len(t, m.Inclusions, 1)
	assert.Equal(t, "shared", m.Inclusions[0].Subfolder)
	assert.Equal(t, []string{"unix"}, m.Inclusions[0].WithTags)
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.ErrorCode
	}{
		{
			name: "unknown field",
			toml: "[[file]]\npath = \"a\"\nsurprise = true\n",
			code: errors.ErrManifestParse,
		},
		{
			name: "file without sources",
			toml: "[[file]]\npath = \"a\"\n",
			code: errors.ErrManifestParse,
		},
		{
			name: "unknown source type",
			toml: "[[file]]\npath = \"a\"\n[[file.sources]]\ntype = \"carrier-pigeon\"\n",
			code: errors.ErrManifestParse,
		},
		{
			name: "unknown edit type",
			toml: "[[file]]\npath = \"a\"\nsource = \"/srv/a\"\n[[file.edit]]\ntype = \"rot13\"\n",
			code: errors.ErrManifestParse,
		},
		{
			name: "bad insert position",
			toml: "[[file]]\npath = \"a\"\nsource = \"/srv/a\"\n[[file.edit]]\ntype = \"insert\"\ncontent = \"x\"\nposition = \"middle\"\n",
			code: errors.ErrManifestParse,
		},
		{
			name: "reserved variable namespace",
			toml: "[variables]\nSELF_NAME = \"x\"\n",
			code: errors.ErrVariableReserved,
		},
		{
			name: "negated tag declaration",
			toml: "default_tags = [\"!linux\"]\n",
			code: errors.ErrTagInvalid,
		},
		{
			name: "reserved tag name",
			toml: "[[file]]\npath = \"a\"\nsource = \"/srv/a\"\ntags = [\"Default\"]\n",
			code: errors.ErrTagInvalid,
		},
		{
			name: "unknown decryption method",
			toml: "[[file]]\npath = \"a\"\nsource = \"/srv/a\"\ndecryption = \"rot13\"\n",
			code: errors.ErrManifestParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(tt.toml))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLoaderProvenanceVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("payload"), 0644))
	path := writeManifest(t, dir, "m.toml", `
[[file]]
path = "out.txt"
source = "{{SELF_PARENT}}/data.txt"
`)

	m, _ := loadManifest(t, path)
	require.Len(t, m.Files, 1)
	assert.Equal(t, sources.Local{Path: filepath.Join(dir, "data.txt")}, m.Files[0].Sources[0])
	assert.Equal(t, dir, m.Variables["SELF_PARENT"])
	assert.Equal(t, dir, m.Variables["SELF_ROOT"])
	assert.Equal(t, "m.toml", m.Variables["SELF_NAME"])
}

func TestLoaderVariableChains(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "m.toml", `
[variables]
base = "/srv"
full = "{{base}}/etc"

[[file]]
path = "a"
source = "{{full}}/a.txt"
`)
	m, _ := loadManifest(t, path)
	assert.Equal(t, sources.Local{Path: "/srv/etc/a.txt"}, m.Files[0].Sources[0])
}

func TestLoaderVariableCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "m.toml", `
[variables]
a = "{{b}}"
b = "{{a}}"
`)
	loader := manifest.NewLoader()
	_, err := loader.Load(path, true, "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableCycle))
}

func TestLoaderRelativeRefNeedsAllowLocal(t *testing.T) {
	loader := manifest.NewLoader()
	_, err := loader.Load("relative/m.toml", false, "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
}

func TestLoaderHashPin(t *testing.T) {
	dir := t.TempDir()
	content := "[[file]]\npath = \"a\"\nsource = \"/srv/a.txt\"\n"
	path := writeManifest(t, dir, "m.toml", content)

	loader := manifest.NewLoader()
	_, err := loader.Load(path, true, hashing.Compute([]byte(content)))
	require.NoError(t, err)

	// The cached entry must still verify pins.
	_, err = loader.Load(path, true, hashing.Compute([]byte("other")))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHashMismatch))
}

func TestGetActiveTagGating(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "m.toml", `
default_tags = ["base"]

[[file]]
path = "always.txt"
source = "/srv/always.txt"

[[file]]
path = "base.txt"
tags = ["base"]
source = "/srv/base.txt"

[[file]]
path = "linux.txt"
tags = ["linux"]
source = "/srv/linux.txt"
`)
	m, loader := loadManifest(t, path)

	files, err := m.GetActive(nil, loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"always.txt", "base.txt"}, paths(files))

	files, err = m.GetActive([]string{"linux"}, loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"always.txt", "base.txt", "linux.txt"}, paths(files))

	files, err = m.GetActive([]string{"!base"}, loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"always.txt"}, paths(files))
}

func TestGetActiveUndeclaredTag(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "m.toml", `
[[file]]
path = "a.txt"
source = "/srv/a.txt"
`)
	m, loader := loadManifest(t, path)
	_, err := m.GetActive([]string{"missing"}, loader)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTagUndeclared))
}

func TestGetActiveTagConflict(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "m.toml", `
[[file]]
path = "a.txt"
tags = ["linux"]
source = "/srv/a.txt"
`)
	m, loader := loadManifest(t, path)
	_, err := m.GetActive([]string{"linux", "!linux"}, loader)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTagConflict))
}

func TestGetActiveCollisions(t *testing.T) {
	dir := t.TempDir()

	t.Run("tagged shadows untagged", func(t *testing.T) {
		path := writeManifest(t, dir, "shadow.toml", `
[[file]]
path = "motd"
source = "/srv/plain.txt"

[[file]]
path = "motd"
tags = ["fancy"]
source = "/srv/fancy.txt"
`)
		m, loader := loadManifest(t, path)

		files, err := m.GetActive([]string{"fancy"}, loader)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, sources.Local{Path: "/srv/fancy.txt"}, files[0].Sources[0])

		files, err = m.GetActive(nil, loader)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, sources.Local{Path: "/srv/plain.txt"}, files[0].Sources[0])
	})

	t.Run("two untagged files collide", func(t *testing.T) {
		path := writeManifest(t, dir, "collide.toml", `
[[file]]
path = "motd"
source = "/srv/a.txt"

[[file]]
path = "motd"
source = "/srv/b.txt"
`)
		m, loader := loadManifest(t, path)
		_, err := m.GetActive(nil, loader)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrPathCollision))
	})

	t.Run("two active tagged files collide", func(t *testing.T) {
		path := writeManifest(t, dir, "tagged.toml", `
[[file]]
path = "motd"
tags = ["a"]
source = "/srv/a.txt"

[[file]]
path = "motd"
tags = ["b"]
source = "/srv/b.txt"
`)
		m, loader := loadManifest(t, path)
		_, err := m.GetActive([]string{"a", "b"}, loader)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrPathCollision))
	})
}

func TestDirectoryExpansion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), []byte("1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "two.txt"), []byte("2"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".hidden"), []byte("h"), 0644))

	path := writeManifest(t, dir, "m.toml", fmt.Sprintf(`
[[directory]]
path = "vendor"
ignore_hidden = true

[[directory.sources]]
type = "local"
path = %q
`, src))
	m, loader := loadManifest(t, path)

	files, err := m.GetActive(nil, loader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendor/one.txt", "vendor/sub/two.txt"}, paths(files))
	for _, f := range files {
		data, err := f.Build(nil, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

func TestDirectoryCountMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), []byte("1"), 0644))

	path := writeManifest(t, dir, "m.toml", fmt.Sprintf(`
[[directory]]
path = "vendor"
count = 3

[[directory.sources]]
type = "local"
path = %q
`, src))
	m, loader := loadManifest(t, path)
	_, err := m.GetActive(nil, loader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 files")
}

func TestInclusion(t *testing.T) {
	dir := t.TempDir()
	child := writeManifest(t, dir, "child.toml", `
[[file]]
path = "conf/app.txt"
tags = ["unix"]

[[file.sources]]
type = "text"
content = "mode=plain"

[[file.edit]]
type = "replace"
from = "plain"
to = "fancy"

[[file.edit]]
type = "replace"
from = "never"
to = "applies"
tags = ["other"]
`)
	parent := writeManifest(t, dir, "parent.toml", fmt.Sprintf(`
[[include]]
config = %q
path = "shared"
tags = ["extra"]
with_tags = ["unix"]
`, child))

	m, loader := loadManifest(t, parent)
	files, err := m.GetActive([]string{"extra"}, loader)
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "shared/conf/app.txt", f.Path)
	assert.Equal(t, []string{"extra"}, f.Tags)

	// The untagged child edit is baked in and re-gated by the inclusion
	// tags; the "other"-tagged edit is dropped at inclusion time.
	require.Len(t, f.Edits, 1)
	data, err := f.Build([]string{"extra"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mode=fancy", string(data))
}

func TestInclusionWithZeroFiles(t *testing.T) {
	dir := t.TempDir()
	child := writeManifest(t, dir, "child.toml", `
[[file]]
path = "a.txt"
tags = ["unix"]
source = "/srv/a.txt"
`)
	parent := writeManifest(t, dir, "parent.toml", fmt.Sprintf(`
[[include]]
config = %q
`, child))

	m, loader := loadManifest(t, parent)
	_, err := m.GetActive(nil, loader)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEmptyInclusion))
}

func TestInclusionHashPin(t *testing.T) {
	dir := t.TempDir()
	childContent := "[[file]]\npath = \"a.txt\"\nsource = \"/srv/a.txt\"\n"
	child := writeManifest(t, dir, "child.toml", childContent)

	parent := writeManifest(t, dir, "parent.toml", fmt.Sprintf(`
[[include]]
config = %q
hash = %q
`, child, hashing.Compute([]byte("tampered"))))

	m, loader := loadManifest(t, parent)
	_, err := m.GetActive(nil, loader)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHashMismatch))
}

func TestTagUniverseSpansInclusions(t *testing.T) {
	dir := t.TempDir()
	child := writeManifest(t, dir, "child.toml", `
[[file]]
path = "a.txt"
tags = ["unix"]
source = "/srv/a.txt"

[[file]]
path = "b.txt"
source = "/srv/b.txt"
`)
	parent := writeManifest(t, dir, "parent.toml", fmt.Sprintf(`
[[include]]
config = %q
`, child))

	m, loader := loadManifest(t, parent)

	// "unix" is only declared in the included manifest, but requesting it
	// at the top level is still legal.
	_, err := m.GetActive([]string{"unix"}, loader)
	require.NoError(t, err)
}

func TestCheckRecursion(t *testing.T) {
	dir := t.TempDir()

	t.Run("chain within the limit passes", func(t *testing.T) {
		leaf := writeManifest(t, dir, "leaf.toml", `
[[file]]
path = "a.txt"
source = "/srv/a.txt"
`)
		mid := writeManifest(t, dir, "mid.toml", fmt.Sprintf("[[include]]\nconfig = %q\n", leaf))
		root := writeManifest(t, dir, "root.toml", fmt.Sprintf("[[include]]\nconfig = %q\n", mid))

		assert.NoError(t, manifest.CheckRecursion(root, manifest.NewLoader()))
	})

	t.Run("duplicate inclusions collapse to one visit", func(t *testing.T) {
		leaf := writeManifest(t, dir, "dup-leaf.toml", `
[[file]]
path = "a.txt"
source = "/srv/a.txt"
`)
		root := writeManifest(t, dir, "dup-root.toml", fmt.Sprintf(
			"[[include]]\nconfig = %q\npath = \"one\"\n\n[[include]]\nconfig = %q\npath = \"two\"\n",
			leaf, leaf))

		assert.NoError(t, manifest.CheckRecursion(root, manifest.NewLoader()))
	})

	t.Run("cycle is detected", func(t *testing.T) {
		a := filepath.Join(dir, "cycle-a.toml")
		b := filepath.Join(dir, "cycle-b.toml")
		writeManifest(t, dir, "cycle-a.toml", fmt.Sprintf("[[include]]\nconfig = %q\n", b))
		writeManifest(t, dir, "cycle-b.toml", fmt.Sprintf("[[include]]\nconfig = %q\n", a))

		err := manifest.CheckRecursion(a, manifest.NewLoader())
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrRecursionLimit))
	})
}

func TestHardenedViolations(t *testing.T) {
	dir := t.TempDir()
	childContent := fmt.Sprintf(`
[[file]]
path = "pinned.txt"
hash = %q
source = "/srv/pinned.txt"
`, hashing.Compute([]byte("pinned")))
	child := writeManifest(t, dir, "child.toml", childContent)

	path := writeManifest(t, dir, "m.toml", fmt.Sprintf(`
[[file]]
path = "unpinned.txt"
source = "/srv/unpinned.txt"

[[directory]]
path = "vendor"

[[directory.sources]]
type = "local"
path = "/srv/vendor"

[[include]]
config = %q
hash = %q
`, child, hashing.Compute([]byte(childContent))))

	m, loader := loadManifest(t, path)
	violations, err := m.HardenedViolations(loader)
	require.NoError(t, err)
	assert.Len(t, violations, 2)

	hardened := writeManifest(t, dir, "hardened.toml", fmt.Sprintf(`
[[file]]
path = "a.txt"
hash = %q
source = "/srv/a.txt"

[[include]]
config = %q
hash = %q
`, hashing.Compute([]byte("a")), child, hashing.Compute([]byte(childContent))))

	m, loader = loadManifest(t, hardened)
	violations, err = m.HardenedViolations(loader)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestFileDeclBuild(t *testing.T) {
	decl := manifest.FileDecl{
		Path:    "motd",
		Sources: []sources.Source{sources.Text{Content: "hello world\n"}},
		Edits: []edits.Edit{
			edits.Replace{From: "world", To: "refold"},
			edits.Insert{Content: "bye", Mode: edits.Append, TagSet: []string{"chatty"}},
		},
	}

	data, err := decl.Build(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello refold\n", string(data))

	data, err = decl.Build([]string{"chatty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello refold\nbye\n", string(data))
}

func paths(files []manifest.FileDecl) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}
