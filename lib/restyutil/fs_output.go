package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	devenv "uzdata-harvester/dev/env"
)

// FilesystemOutput writes each recorded HTTP exchange to its own file.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` (which may start with `<dev_state>`) and
// uses it as the dump directory.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
