// Package report provides read-only diagnostics over a mounted
// simplefs.FileSystem: consistency checking against the invariants of
// spec.md §3, and a tabular snapshot of inode usage for offline
// inspection. Neither operation mutates the file system.
package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/hashicorp/go-multierror"

	"github.com/blockimg/simplefs"
)

// InodeUsageRow is one row of a Dump: a compact summary of a single valid
// inode's block usage.
type InodeUsageRow struct {
	Inode          int    `csv:"inode"`
	SizeBytes      uint32 `csv:"size_bytes"`
	DirectBlocks   int    `csv:"direct_blocks"`
	HasIndirect    bool   `csv:"has_indirect"`
	IndirectBlocks int    `csv:"indirect_blocks"`
}

// Check walks every valid inode of fs and reports every invariant
// violation it finds, instead of stopping at the first one. A nil return
// means the file system is internally consistent.
func Check(fs *simplefs.FileSystem) error {
	sb := fs.SuperBlock()
	seen := make(map[uint32]int) // block number -> owning inode

	var result *multierror.Error

	for n := 0; n < int(sb.Inodes); n++ {
		node, err := fs.Inode(n)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", n, err))
			continue
		}
		if node.Valid == 0 {
			continue
		}

		directCount := 0
		for _, d := range node.Direct {
			if d == 0 {
				break
			}
			directCount++
			checkBlockOwnership(&result, seen, d, n, sb)
		}

		indirectPointerCount := 0
		if node.Indirect != 0 {
			checkBlockOwnership(&result, seen, node.Indirect, n, sb)

			pointers, err := fs.IndirectPointers(n)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("inode %d: %w", n, err))
			} else {
				for _, p := range pointers {
					if p == 0 {
						break
					}
					indirectPointerCount++
					checkBlockOwnership(&result, seen, p, n, sb)
				}
			}
		}

		maxBlocksForSize := ceilDiv(node.Size, simplefs.BlockSize)
		if int(maxBlocksForSize) > directCount+indirectPointerCount {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: size %d bytes needs more blocks than its %d direct and %d indirect pointers can address",
				n, node.Size, directCount, indirectPointerCount))
		}
	}

	if result != nil {
		result.ErrorFormat = func(errs []error) string {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return fmt.Sprintf("%d consistency violation(s) found:\n  %s",
				len(errs), joinLines(msgs))
		}
		return result.ErrorOrNil()
	}
	return nil
}

func checkBlockOwnership(result **multierror.Error, seen map[uint32]int, b uint32, owner int, sb simplefs.SuperBlock) {
	if b <= sb.InodeBlocks || b >= sb.Blocks {
		*result = multierror.Append(*result, fmt.Errorf(
			"inode %d: block %d is out of the data region [%d, %d)",
			owner, b, sb.InodeBlocks+1, sb.Blocks))
		return
	}
	if prevOwner, ok := seen[b]; ok {
		*result = multierror.Append(*result, fmt.Errorf(
			"block %d is referenced by both inode %d and inode %d",
			b, prevOwner, owner))
		return
	}
	seen[b] = owner
}

// Dump produces one InodeUsageRow per valid inode on fs.
func Dump(fs *simplefs.FileSystem) ([]InodeUsageRow, error) {
	sb := fs.SuperBlock()
	rows := make([]InodeUsageRow, 0)

	for n := 0; n < int(sb.Inodes); n++ {
		node, err := fs.Inode(n)
		if err != nil {
			return nil, fmt.Errorf("inode %d: %w", n, err)
		}
		if node.Valid == 0 {
			continue
		}

		directCount := 0
		for _, d := range node.Direct {
			if d == 0 {
				break
			}
			directCount++
		}

		indirectCount := 0
		if node.Indirect != 0 {
			pointers, err := fs.IndirectPointers(n)
			if err != nil {
				return nil, fmt.Errorf("inode %d: %w", n, err)
			}
			for _, p := range pointers {
				if p == 0 {
					break
				}
				indirectCount++
			}
		}

		rows = append(rows, InodeUsageRow{
			Inode:          n,
			SizeBytes:      node.Size,
			DirectBlocks:   directCount,
			HasIndirect:    node.Indirect != 0,
			IndirectBlocks: indirectCount,
		})
	}

	return rows, nil
}

// WriteCSV serializes rows as CSV to w.
func WriteCSV(w io.Writer, rows []InodeUsageRow) error {
	return gocsv.Marshal(rows, w)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n  "
		}
		out += l
	}
	return out
}

func ceilDiv(a uint32, b uint32) uint32 {
	return (a + b - 1) / b
}
