/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileData a file path and its size
type FileData struct {
	FullPath string
	Path     string
	Name     string
	Size     int64
}

// NewFileData creates an instance of FileData from a file path and size
func NewFileData(fullPath string, size int64) *FileData {
	this := &FileData{}
	this.FullPath = fullPath
	this.Size = size
	this.Path, this.Name = filepath.Split(fullPath)
	return this
}

func isDotFile(path string) bool {
	name := filepath.Base(path)
	return len(name) > 1 && name[0] == '.' && name != ".."
}

func accept(mode fs.FileMode, ignoreLinks bool) bool {
	return mode.IsRegular() || (ignoreLinks == false && mode&fs.ModeSymlink != 0)
}

// CreateFileList appends to fileList the files found at target. A regular
// file is added as is. For a directory, only its regular files are added
// unless isRecursive is set, then the whole tree is walked.
func CreateFileList(target string, fileList []FileData, isRecursive, ignoreLinks, ignoreDotFiles bool) ([]FileData, error) {
	fi, err := os.Lstat(target)

	if err != nil {
		return fileList, err
	}

	if ignoreDotFiles == true && isDotFile(target) {
		return fileList, nil
	}

	if fi.IsDir() == false {
		if accept(fi.Mode(), ignoreLinks) {
			fileList = append(fileList, *NewFileData(target, fi.Size()))
		}

		return fileList, nil
	}

	err = filepath.WalkDir(target, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == target {
			return nil
		}

		if ignoreDotFiles == true && isDotFile(path) {
			if de.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if de.IsDir() {
			if isRecursive == false {
				return filepath.SkipDir
			}

			return nil
		}

		info, err := de.Info()

		if err != nil {
			return err
		}

		if accept(info.Mode(), ignoreLinks) {
			fileList = append(fileList, *NewFileData(path, info.Size()))
		}

		return nil
	})

	return fileList, err
}

// SortFiles orders files by full path or, if bySize is set, by parent
// directory then decreasing size
func SortFiles(files []FileData, bySize bool) {
	sort.SliceStable(files, func(i, j int) bool {
		if bySize == false {
			return strings.Compare(files[i].FullPath, files[j].FullPath) < 0
		}

		if res := strings.Compare(files[i].Path, files[j].Path); res != 0 {
			return res < 0
		}

		return files[i].Size > files[j].Size
	})
}
