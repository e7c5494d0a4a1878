// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package counts

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Write writes m to w as a tab-delimited table with a "gene" corner label.
func Write(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)

	_, err := bw.WriteString("gene\t")
	if err != nil {
		return err
	}
	_, err = bw.WriteString(strings.Join(m.Cells, "\t"))
	if err != nil {
		return err
	}
	err = bw.WriteByte('\n')
	if err != nil {
		return err
	}

	var buf []byte
	for r, id := range m.Genes {
		_, err = bw.WriteString(id)
		if err != nil {
			return err
		}
		for c := range m.Cells {
			buf = append(buf[:0], '\t')
			buf = strconv.AppendFloat(buf, m.Counts.At(r, c), 'f', -1, 64)
			_, err = bw.Write(buf)
			if err != nil {
				return err
			}
		}
		err = bw.WriteByte('\n')
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
