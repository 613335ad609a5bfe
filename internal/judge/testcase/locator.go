// Package testcase locates input/expected-output pairs in a problem directory.
package testcase

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	appErr "cfjudge/pkg/errors"
)

// DefaultName labels the single unindexed in.txt/out.txt pair.
const DefaultName = "default"

// Case is one input/expected-output pair.
type Case struct {
	// Index is the 1-based ordinal; 0 for the unindexed pair.
	Index      int    `json:"index"`
	Name       string `json:"name"`
	InputPath  string `json:"-"`
	AnswerPath string `json:"-"`
}

// Locate returns the ordered test cases in dir.
//
// Numbered pairs in1.txt/out1.txt, in2.txt/out2.txt, ... are taken while both
// files exist; the first incomplete index ends the scan. Without any numbered
// pair the unindexed in.txt/out.txt pair is used. An empty result is not an error.
func Locate(dir string) ([]Case, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.Newf(appErr.FileNotFound, "directory %s not found", dir).WithDetail("dir", dir)
		}
		return nil, appErr.Wrapf(err, appErr.FileSystemError, "stat directory failed")
	}
	if !info.IsDir() {
		return nil, appErr.Newf(appErr.InvalidParams, "%s is not a directory", dir).WithDetail("dir", dir)
	}

	var cases []Case
	for i := 1; ; i++ {
		in := filepath.Join(dir, fmt.Sprintf("in%d.txt", i))
		out := filepath.Join(dir, fmt.Sprintf("out%d.txt", i))
		if !isFile(in) || !isFile(out) {
			break
		}
		cases = append(cases, Case{Index: i, Name: strconv.Itoa(i), InputPath: in, AnswerPath: out})
	}
	if len(cases) > 0 {
		return cases, nil
	}

	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	if isFile(in) && isFile(out) {
		return []Case{{Index: 0, Name: DefaultName, InputPath: in, AnswerPath: out}}, nil
	}
	return nil, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
