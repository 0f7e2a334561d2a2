package engine

import (
	"fmt"
	"os"

	"github.com/josephlewis42/lish/core/cmdtree"
	"golang.org/x/sys/unix"
)

func grow(table []*os.File, fd int) []*os.File {
	for len(table) <= fd {
		table = append(table, nil)
	}
	return table
}

// applyRedirections rewires table in order. Files it opens are returned even
// on error and must be closed by the caller once the stage is launched.
func applyRedirections(table []*os.File, redirs []cmdtree.Redirection) ([]*os.File, []*os.File, error) {
	var opened []*os.File

	for _, redir := range redirs {
		switch r := redir.(type) {
		case *cmdtree.FileRedir:
			var flag int
			switch r.Dir {
			case cmdtree.In:
				flag = os.O_RDONLY
			case cmdtree.Out:
				flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			case cmdtree.Append:
				flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}

			f, err := os.OpenFile(r.Path, flag, 0666)
			if err != nil {
				return table, opened, fmt.Errorf("%s: %w", r.Path, osError(err))
			}
			opened = append(opened, f)

			table = grow(table, r.Fd)
			table[r.Fd] = f

		case *cmdtree.DescRedir:
			var src *os.File
			if r.Src < len(table) {
				src = table[r.Src]
			}
			if src == nil {
				return table, opened, fmt.Errorf("%d: %w", r.Src, unix.EBADF)
			}

			flags, err := unix.FcntlInt(src.Fd(), unix.F_GETFL, 0)
			if err != nil {
				return table, opened, fmt.Errorf("%d: %w", r.Src, err)
			}

			mode := flags & unix.O_ACCMODE
			if (r.Mode == cmdtree.Read && mode == unix.O_WRONLY) ||
				(r.Mode == cmdtree.Write && mode == unix.O_RDONLY) {
				return table, opened, fmt.Errorf("%d: wrong access mode", r.Src)
			}

			if r.Op == cmdtree.Dup || r.Op == cmdtree.DupClose {
				table = grow(table, r.Dst)
				table[r.Dst] = src
			}
			if r.Op == cmdtree.Close || r.Op == cmdtree.DupClose {
				table[r.Src] = nil
			}
		}
	}

	return table, opened, nil
}

// osError strips the operation and path from an *os.PathError.
func osError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
