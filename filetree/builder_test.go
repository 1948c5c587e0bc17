/*
Copyright © 2026 Tekian

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package filetree_test

import (
	"slices"
	"testing"

	"github.com/tekian/cargo-deltabuild/cargo"
	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/filetree"
	"github.com/tekian/cargo-deltabuild/internal/mapfs"
	"github.com/tekian/cargo-deltabuild/testutil"
)

// appMetadata describes a workspace with a single crate "app" rooted at
// /ws/app with one library target.
func appMetadata() *cargo.Metadata {
	return &cargo.Metadata{
		WorkspaceRoot: "/ws",
		Packages: []cargo.Package{
			{
				Name:         "app",
				ManifestPath: "/ws/app/Cargo.toml",
				Targets: []cargo.Target{
					{Name: "app", Kind: []string{"lib"}, SrcPath: "/ws/app/src/lib.rs"},
				},
			},
		},
	}
}

func findChild(t *testing.T, node *filetree.Node, path string) *filetree.Node {
	t.Helper()
	for _, child := range node.Children {
		if child.Path == path {
			return child
		}
	}
	t.Fatalf("node %q has no child %q (children: %v)", node.Path, path, childPaths(node))
	return nil
}

func childPaths(node *filetree.Node) []string {
	var paths []string
	for _, child := range node.Children {
		paths = append(paths, child.Path)
	}
	return paths
}

func TestBuildWorkspaceShape(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/Cargo.toml", "[workspace]", 0644)
	mfs.AddFile("/ws/app/Cargo.toml", "[package]", 0644)
	mfs.AddFile("/ws/app/src/lib.rs", `
mod config;
mod handlers;

fn boot() {
    let schema = include_str!("../schema.sql");
}
`, 0644)
	mfs.AddFile("/ws/app/src/config.rs", "pub struct Config;", 0644)
	mfs.AddFile("/ws/app/src/handlers/mod.rs", "mod http;", 0644)
	mfs.AddFile("/ws/app/src/handlers/http.rs", "pub fn serve() {}", 0644)
	mfs.AddFile("/ws/app/schema.sql", "CREATE TABLE t (id INT);", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	if root.Kind != filetree.KindWorkspace || root.Path != "/ws/Cargo.toml" {
		t.Fatalf("root = %s %q, want Workspace /ws/Cargo.toml", root.Kind, root.Path)
	}

	crate := findChild(t, root, "/ws/app/Cargo.toml")
	if crate.Kind != filetree.KindCrate {
		t.Errorf("crate node kind = %s, want %s", crate.Kind, filetree.KindCrate)
	}

	target := findChild(t, crate, "/ws/app/src/lib.rs")
	if target.Kind != filetree.KindTarget {
		t.Errorf("target node kind = %s, want %s", target.Kind, filetree.KindTarget)
	}

	configMod := findChild(t, target, "/ws/app/src/config.rs")
	if configMod.Kind != filetree.KindModule {
		t.Errorf("config.rs kind = %s, want %s", configMod.Kind, filetree.KindModule)
	}

	handlers := findChild(t, target, "/ws/app/src/handlers/mod.rs")
	http := findChild(t, handlers, "/ws/app/src/handlers/http.rs")
	if http.Kind != filetree.KindModule {
		t.Errorf("http.rs kind = %s, want %s", http.Kind, filetree.KindModule)
	}

	schema := findChild(t, target, "/ws/app/schema.sql")
	if schema.Kind != filetree.KindLiteralInclusion {
		t.Errorf("schema.sql kind = %s, want %s", schema.Kind, filetree.KindLiteralInclusion)
	}

	if unresolved := builder.Unresolved(); len(unresolved) != 0 {
		t.Errorf("Unresolved() = %v, want none", unresolved)
	}
}

func TestBuilderStemDirectoryTakesPrecedence(t *testing.T) {
	// engine.rs sits next to a directory engine/, so engine.rs's own
	// modules resolve inside engine/, not alongside it.
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "mod engine;", 0644)
	mfs.AddFile("/ws/app/src/engine.rs", "mod parser;", 0644)
	mfs.AddFile("/ws/app/src/engine/parser.rs", "", 0644)
	mfs.AddFile("/ws/app/src/parser.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	engine := findChild(t, target, "/ws/app/src/engine.rs")
	findChild(t, engine, "/ws/app/src/engine/parser.rs")
}

func TestBuilderDirectoryModuleFallback(t *testing.T) {
	// No proto.rs and no proto/mod.rs: every .rs file directly inside
	// proto/ becomes a module candidate.
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "mod proto;", 0644)
	mfs.AddFile("/ws/app/src/proto/requests.rs", "", 0644)
	mfs.AddFile("/ws/app/src/proto/responses.rs", "", 0644)
	mfs.AddFile("/ws/app/src/proto/notes.txt", "", 0644)
	mfs.AddFile("/ws/app/src/proto/nested/deep.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	findChild(t, target, "/ws/app/src/proto/requests.rs")
	findChild(t, target, "/ws/app/src/proto/responses.rs")
	if len(target.Children) != 2 {
		t.Errorf("target children = %v, want only the two direct .rs files", childPaths(target))
	}
}

func TestBuilderNestedModules(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", `
mod outer {
    mod inner;
}
`, 0644)
	mfs.AddFile("/ws/app/src/outer/inner.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	inner := findChild(t, target, "/ws/app/src/outer/inner.rs")
	if inner.Kind != filetree.KindModule {
		t.Errorf("inner.rs kind = %s, want %s", inner.Kind, filetree.KindModule)
	}
}

func TestBuilderPathOverride(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", `
#[path = "gen/schema.rs"]
mod schema;

#[path = "gen/missing.rs"]
mod gone;
`, 0644)
	mfs.AddFile("/ws/app/src/gen/schema.rs", "mod extra;", 0644)
	mfs.AddFile("/ws/app/src/gen/extra.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	schema := findChild(t, target, "/ws/app/src/gen/schema.rs")
	if schema.Kind != filetree.KindModulePathOverride {
		t.Errorf("schema.rs kind = %s, want %s", schema.Kind, filetree.KindModulePathOverride)
	}
	// The override target is expanded like any other file.
	findChild(t, schema, "/ws/app/src/gen/extra.rs")

	unresolved := builder.Unresolved()
	if len(unresolved) != 1 {
		t.Fatalf("Unresolved() = %v, want exactly the missing override", unresolved)
	}
	if unresolved[0].Kind != filetree.RefPathOverride || unresolved[0].Name != "gen/missing.rs" {
		t.Errorf("Unresolved()[0] = %+v, want path override gen/missing.rs", unresolved[0])
	}
}

func TestBuilderCyclicOverridesTerminate(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "mod a;", 0644)
	mfs.AddFile("/ws/app/src/a.rs", "#[path = \"b.rs\"]\nmod b;", 0644)
	mfs.AddFile("/ws/app/src/b.rs", "#[path = \"a.rs\"]\nmod a;", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	a := findChild(t, target, "/ws/app/src/a.rs")
	b := findChild(t, a, "/ws/app/src/b.rs")
	backEdge := findChild(t, b, "/ws/app/src/a.rs")
	if len(backEdge.Children) != 0 {
		t.Errorf("revisited a.rs has children %v, want none", childPaths(backEdge))
	}
}

func TestBuilderSharedFileExpandedOnce(t *testing.T) {
	meta := appMetadata()
	meta.Packages[0].Targets = append(meta.Packages[0].Targets, cargo.Target{
		Name: "tool", Kind: []string{"bin"}, SrcPath: "/ws/app/src/bin/tool.rs",
	})

	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "mod shared;", 0644)
	mfs.AddFile("/ws/app/src/bin/tool.rs", "#[path = \"../shared.rs\"]\nmod shared;", 0644)
	mfs.AddFile("/ws/app/src/shared.rs", "mod leaf;", 0644)
	mfs.AddFile("/ws/app/src/leaf.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(meta)
	crate := findChild(t, root, "/ws/app/Cargo.toml")

	libShared := findChild(t, findChild(t, crate, "/ws/app/src/lib.rs"), "/ws/app/src/shared.rs")
	if len(libShared.Children) != 1 {
		t.Errorf("first expansion children = %v, want [leaf.rs]", childPaths(libShared))
	}
	toolShared := findChild(t, findChild(t, crate, "/ws/app/src/bin/tool.rs"), "/ws/app/src/shared.rs")
	if len(toolShared.Children) != 0 {
		t.Errorf("second expansion children = %v, want none", childPaths(toolShared))
	}
}

func TestBuilderFileReferences(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", `
const BOOT_QUERY: &str = "boot.sql";

fn load() {
    let near = std::fs::read("queries/report.sql");
    let far = Config::from_file(BOOT_QUERY);
    let skipped = loader.open("queries/other.sql");
}
`, 0644)
	mfs.AddFile("/ws/app/src/queries/report.sql", "", 0644)
	mfs.AddFile("/ws/app/src/queries/other.sql", "", 0644)
	mfs.AddFile("/ws/boot.sql", "", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())
	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")

	near := findChild(t, target, "/ws/app/src/queries/report.sql")
	if near.Kind != filetree.KindFileReference {
		t.Errorf("report.sql kind = %s, want %s", near.Kind, filetree.KindFileReference)
	}
	// Resolved through the constant, relative to the workspace root.
	findChild(t, target, "/ws/boot.sql")

	for _, child := range target.Children {
		if child.Path == "/ws/app/src/queries/other.sql" {
			t.Error("method call through a receiver was collected as a file reference")
		}
	}
}

func TestBuilderAssumePatterns(t *testing.T) {
	parser := config.DefaultParser()
	parser.Assume = true
	parser.AssumePatterns = []string{"*.sql", "queries/*.sql", "templates/*.html"}
	cfg := &config.Main{Parser: parser}

	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "", 0644)
	mfs.AddFile("/ws/app/queries/one.sql", "", 0644)
	mfs.AddFile("/ws/app/queries/two.sql", "", 0644)
	mfs.AddFile("/ws/app/templates/index.html", "", 0644)
	mfs.AddFile("/ws/app/README.md", "", 0644)

	builder := filetree.NewBuilder(mfs, cfg, "/ws")
	root := builder.BuildWorkspace(appMetadata())
	crate := findChild(t, root, "/ws/app/Cargo.toml")

	var assumed []string
	for _, child := range crate.Children {
		if child.Kind == filetree.KindAssumePattern {
			assumed = append(assumed, child.Path)
		}
	}
	expected := []string{
		"/ws/app/queries/one.sql",
		"/ws/app/queries/two.sql",
		"/ws/app/templates/index.html",
	}
	if len(assumed) != len(expected) {
		t.Fatalf("assumed files = %v, want %v", assumed, expected)
	}
	for i, path := range expected {
		if assumed[i] != path {
			t.Errorf("assumed[%d] = %q, want %q", i, assumed[i], path)
		}
	}
}

func TestBuilderModMacros(t *testing.T) {
	parser := config.DefaultParser()
	parser.ModMacros = []string{"declare_mod"}
	cfg := &config.Main{Parser: parser}

	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "declare_mod!(generated);", 0644)
	mfs.AddFile("/ws/app/src/generated.rs", "", 0644)

	builder := filetree.NewBuilder(mfs, cfg, "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	generated := findChild(t, target, "/ws/app/src/generated.rs")
	if generated.Kind != filetree.KindModule {
		t.Errorf("generated.rs kind = %s, want %s", generated.Kind, filetree.KindModule)
	}
}

func TestBuilderUnresolvedModule(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/ws/app/src/lib.rs", "mod phantom;", 0644)

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	if len(target.Children) != 0 {
		t.Errorf("target children = %v, want none", childPaths(target))
	}

	unresolved := builder.Unresolved()
	if len(unresolved) != 1 {
		t.Fatalf("Unresolved() = %v, want one entry", unresolved)
	}
	ref := unresolved[0]
	if ref.Kind != filetree.RefModule || ref.Name != "phantom" || ref.From != "/ws/app/src/lib.rs" {
		t.Errorf("Unresolved()[0] = %+v, want module phantom from lib.rs", ref)
	}
}

func TestBuilderMissingTargetFile(t *testing.T) {
	builder := filetree.NewBuilder(mapfs.New(), config.Default(), "/ws")
	root := builder.BuildWorkspace(appMetadata())

	target := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/lib.rs")
	if len(target.Children) != 0 {
		t.Errorf("unreadable target has children %v, want none", childPaths(target))
	}
}

func TestBuildWorkspaceFromFixture(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "workspace", "/ws")

	meta := &cargo.Metadata{
		WorkspaceRoot: "/ws",
		Packages: []cargo.Package{
			{
				Name:         "app",
				ManifestPath: "/ws/app/Cargo.toml",
				Targets: []cargo.Target{
					{Name: "app", Kind: []string{"bin"}, SrcPath: "/ws/app/src/main.rs"},
				},
			},
			{
				Name:         "core",
				ManifestPath: "/ws/core/Cargo.toml",
				Targets: []cargo.Target{
					{Name: "core", Kind: []string{"lib"}, SrcPath: "/ws/core/src/lib.rs"},
				},
			},
		},
	}

	builder := filetree.NewBuilder(mfs, config.Default(), "/ws")
	root := builder.BuildWorkspace(meta)

	appTarget := findChild(t, findChild(t, root, "/ws/app/Cargo.toml"), "/ws/app/src/main.rs")
	findChild(t, appTarget, "/ws/app/src/cli.rs")
	boot := findChild(t, appTarget, "/ws/app/queries/boot.sql")
	if boot.Kind != filetree.KindLiteralInclusion {
		t.Errorf("boot.sql kind = %s, want %s", boot.Kind, filetree.KindLiteralInclusion)
	}

	coreTarget := findChild(t, findChild(t, root, "/ws/core/Cargo.toml"), "/ws/core/src/lib.rs")
	findChild(t, coreTarget, "/ws/core/src/types.rs")

	if unresolved := builder.Unresolved(); len(unresolved) != 0 {
		t.Errorf("Unresolved() = %v, want none", unresolved)
	}

	root.MakeRelative("/ws")
	if got := root.CratesContaining("app/queries/boot.sql"); !slices.Equal(got, []string{"app"}) {
		t.Errorf("CratesContaining(boot.sql) = %v, want [app]", got)
	}
}
