package simplefs

import (
	"fmt"
	"io"

	"github.com/blockimg/simplefs/block"
)

// Debug reads the super-block and inode table directly off dev — no
// mount required — and writes the textual dump described in spec.md §6
// to w.
func Debug(w io.Writer, dev *block.Device) error {
	buf := make([]byte, block.Size)
	if dev.ReadBlock(0, buf) == block.Failure {
		return NewDriverErrorWithMessage(EIO, "failed to read super block")
	}
	sb := decodeSuperBlock(buf)

	fmt.Fprintln(w, "SuperBlock:")
	if sb.Magic == MagicNumber {
		fmt.Fprintln(w, "    magic number is valid")
	} else {
		fmt.Fprintln(w, "    magic number is invalid")
	}
	fmt.Fprintf(w, "    %d blocks\n", sb.Blocks)
	fmt.Fprintf(w, "    %d inode blocks\n", sb.InodeBlocks)
	fmt.Fprintf(w, "    %d inodes\n", sb.Inodes)

	remaining := sb.Inodes
	for i := uint32(0); i < sb.InodeBlocks; i++ {
		if dev.ReadBlock(uint(i+1), buf) == block.Failure {
			return NewDriverErrorWithMessage(EIO, "failed to read inode table block")
		}
		inodes := decodeInodeBlock(buf)

		for j := 0; j < InodesPerBlock; j++ {
			node := inodes[j]
			if node.Valid == 0 {
				continue
			}

			fmt.Fprintf(w, "Inode %d:\n", int(i)*InodesPerBlock+j)
			fmt.Fprintf(w, "    size: %d bytes\n", node.Size)
			fmt.Fprint(w, "    direct blocks:")
			for _, d := range node.Direct {
				if d == 0 {
					break
				}
				fmt.Fprintf(w, " %d", d)
			}
			fmt.Fprintln(w)

			if node.Indirect != 0 {
				fmt.Fprintf(w, "    indirect block: %d\n", node.Indirect)

				indirectBuf := make([]byte, block.Size)
				if dev.ReadBlock(uint(node.Indirect), indirectBuf) == block.Failure {
					return NewDriverErrorWithMessage(EIO, "failed to read indirect block")
				}
				pointers := decodePointerBlock(indirectBuf)

				fmt.Fprint(w, "    indirect data blocks:")
				for _, p := range pointers {
					if p == 0 {
						break
					}
					fmt.Fprintf(w, " %d", p)
				}
				fmt.Fprintln(w)
			}

			remaining--
		}

		if remaining == 0 {
			break
		}
	}

	return nil
}
