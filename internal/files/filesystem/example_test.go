package filesystem_test

import (
	"embed"
	"fmt"
	"log"

	"github.com/pgseed/pgseed/internal/files/filesystem"
)

//go:embed testdata
var exampleFS embed.FS

// ExampleMemoryFileSystem shows the in-memory provider tests use to
// stand in for a fixture directory on disk.
func ExampleMemoryFileSystem() {
	mfs := filesystem.NewMemoryFileSystem("/project")
	mfs.AddFile("fixtures/blog.author_0.json", `[{"model": "blog.author", "pk": 1, "fields": {"email": "ada@example.com"}}]`)
	mfs.AddFile("fixtures/store/blog.entry_0.json", `[{"model": "blog.entry", "pk": 1, "fields": {"title": "First"}}]`)

	content, err := mfs.ReadFile("fixtures/blog.author_0.json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(content))

	dir, err := mfs.Open("/project/fixtures")
	if err != nil {
		log.Fatal(err)
	}
	err = dir.Walk(func(file filesystem.File, err error) error {
		if err != nil {
			return err
		}
		if !file.Info().IsDir() {
			fmt.Println(file.RelativePath())
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// [{"model": "blog.author", "pk": 1, "fields": {"email": "ada@example.com"}}]
	// blog.author_0.json
	// store/blog.entry_0.json
}

// ExampleEmbedFileSystem reads assets compiled into the binary through
// the same interface the OS and memory providers implement.
func ExampleEmbedFileSystem() {
	efs := filesystem.NewEmbedFileSystem(exampleFS, "testdata")

	content, err := efs.ReadFile("root.json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(string(content))

	// Output:
	// [{"model": "blog.tag", "pk": 1, "fields": {"name": "go"}}]
}

// ExampleDirectory_Walk prunes a subtree with SkipDir while walking.
func ExampleDirectory_Walk() {
	mfs := filesystem.NewMemoryFileSystem("/project")
	mfs.AddFile("fixtures/blog.author_0.json", `[]`)
	mfs.AddFile("fixtures/uploads/avatar.png", "binary")
	mfs.AddFile("fixtures/uploads/raw/photo.png", "binary")

	dir, err := mfs.Open("/project/fixtures")
	if err != nil {
		log.Fatal(err)
	}

	err = dir.Walk(func(file filesystem.File, err error) error {
		if err != nil {
			return err
		}
		if file.Info().IsDir() && file.Info().Name() == "uploads" {
			return filesystem.SkipDir
		}
		if !file.Info().IsDir() {
			fmt.Println(file.RelativePath())
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// blog.author_0.json
}

// ExampleFileSystemProvider runs the same fixture count against two
// provider implementations.
func ExampleFileSystemProvider() {
	countFiles := func(provider filesystem.FileSystemProvider, path string) (int, error) {
		dir, err := provider.Open(path)
		if err != nil {
			return 0, err
		}
		count := 0
		err = dir.Walk(func(file filesystem.File, err error) error {
			if err != nil {
				return err
			}
			if !file.Info().IsDir() {
				count++
			}
			return nil
		})
		return count, err
	}

	embedded := filesystem.NewEmbedFileSystem(exampleFS, "testdata")
	n, err := countFiles(embedded, ".")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("embedded: %d\n", n)

	mem := filesystem.NewMemoryFileSystem("/data")
	mem.AddFile("blog.author_0.json", `[]`)
	mem.AddFile("blog.entry_0.json", `[]`)
	n, err = countFiles(mem, "/data")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("memory: %d\n", n)

	// Output:
	// embedded: 2
	// memory: 2
}
