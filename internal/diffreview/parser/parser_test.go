package parser

import (
	"testing"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

func TestParse_EmptyInput(t *testing.T) {
	patch, err := Parse("   \n\t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Files) != 0 {
		t.Errorf("expected empty patch set, got %d files", len(patch.Files))
	}
}

func TestParse_ModifiedFile(t *testing.T) {
	diff := `diff --git a/pkg/foo.go b/pkg/foo.go
index abc123..def456 100644
--- a/pkg/foo.go
+++ b/pkg/foo.go
@@ -1,3 +1,4 @@
 package foo
+import "fmt"

 func Foo() {}
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(patch.Files))
	}

	f := patch.Files[0]
	if f.Path != "pkg/foo.go" {
		t.Errorf("path = %q, want pkg/foo.go", f.Path)
	}
	if f.ChangeType != domain.FileModified {
		t.Errorf("change type = %v, want modified", f.ChangeType)
	}
	if f.Language != "go" {
		t.Errorf("language = %q, want go", f.Language)
	}
	if len(f.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(f.Hunks))
	}
	if f.Hunks[0].TargetStart != 1 || f.Hunks[0].TargetLength != 4 {
		t.Errorf("hunk range = %d,%d want 1,4", f.Hunks[0].TargetStart, f.Hunks[0].TargetLength)
	}
	if f.AddedLines != 1 {
		t.Errorf("added lines = %d, want 1", f.AddedLines)
	}
}

func TestParse_AddedFile(t *testing.T) {
	diff := `diff --git a/new.go b/new.go
new file mode 100644
index 0000000..abc123
--- /dev/null
+++ b/new.go
@@ -0,0 +1,2 @@
+package new
+
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Files[0].ChangeType != domain.FileAdded {
		t.Errorf("change type = %v, want added", patch.Files[0].ChangeType)
	}
}

func TestParse_DeletedFile(t *testing.T) {
	diff := `diff --git a/old.go b/old.go
deleted file mode 100644
index abc123..0000000
--- a/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package old
-
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Files[0].ChangeType != domain.FileDeleted {
		t.Errorf("change type = %v, want deleted", patch.Files[0].ChangeType)
	}
	if patch.Files[0].DeletedLines != 2 {
		t.Errorf("deleted lines = %d, want 2", patch.Files[0].DeletedLines)
	}
}

func TestParse_RenamedFile(t *testing.T) {
	diff := `diff --git a/old_name.go b/new_name.go
similarity index 100%
rename from old_name.go
rename to new_name.go
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := patch.Files[0]
	if f.ChangeType != domain.FileRenamed {
		t.Errorf("change type = %v, want renamed", f.ChangeType)
	}
	if f.OldPath != "old_name.go" {
		t.Errorf("old path = %q, want old_name.go", f.OldPath)
	}
	if f.Path != "new_name.go" {
		t.Errorf("path = %q, want new_name.go", f.Path)
	}
}

func TestParse_MultipleFiles(t *testing.T) {
	diff := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,1 +1,1 @@
-old
+new
diff --git a/b.py b/b.py
--- a/b.py
+++ b/b.py
@@ -1,1 +1,2 @@
 x = 1
+y = 2
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(patch.Files))
	}
	if patch.Files[1].Language != "python" {
		t.Errorf("language = %q, want python", patch.Files[1].Language)
	}
}

func TestParse_MalformedDiffReturnsError(t *testing.T) {
	_, err := Parse("this is not a diff at all, just prose")
	if err == nil {
		t.Fatal("expected parse error for non-diff input")
	}
}

func TestParse_BinaryFile(t *testing.T) {
	diff := `diff --git a/image.png b/image.png
index abc123..def456 100644
Binary files a/image.png and b/image.png differ
`
	patch, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !patch.Files[0].IsBinary {
		t.Error("expected IsBinary = true")
	}
	if len(patch.Files[0].Hunks) != 0 {
		t.Errorf("expected no hunks for binary file, got %d", len(patch.Files[0].Hunks))
	}
}
