// Package entry synthesizes the archive entry module that forwards to the
// relocated handler.
package entry

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/fnzip/pkg/fnzip/pathnorm"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
)

// Extension is the module file extension of the target runtime.
const Extension = ".js"

// Filename returns the archive name of the entry module.
func Filename(filename string) string {
	if strings.HasSuffix(filename, Extension) {
		return filename
	}
	return filename + Extension
}

// Content returns the forwarding statement for a handler at archivePath.
func Content(archivePath string) []byte {
	return []byte(fmt.Sprintf("module.exports = require('./%s')", archivePath))
}

// Build returns the content-backed entry placed at the archive root.
// The handler path goes through the same normalization as every file-backed
// entry, so the require target always exists in the archive.
func Build(handlerFile, commonPrefix, filename string) types.ZipEntry {
	return build(pathnorm.Native, handlerFile, commonPrefix, filename)
}

func build(style pathnorm.Style, handlerFile, commonPrefix, filename string) types.ZipEntry {
	mainPath := style.ToArchivePath(handlerFile, commonPrefix)
	return types.ZipEntry{
		Name:    Filename(filename),
		Content: Content(mainPath),
	}
}
