package attnexport

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriteIPC writes a capture to w as an Arrow IPC stream holding one record.
func WriteIPC(w io.Writer, mem memory.Allocator, c Capture) error {
	rec, err := BuildRecord(mem, c)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("attnexport: write record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("attnexport: close stream: %w", err)
	}
	return nil
}

// ReadIPC reads every row of an Arrow IPC stream written by WriteIPC.
func ReadIPC(r io.Reader, mem memory.Allocator) ([]Row, error) {
	ir, err := ipc.NewReader(r, ipc.WithAllocator(mem), ipc.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("attnexport: open stream: %w", err)
	}
	defer ir.Release()

	var rows []Row
	for ir.Next() {
		batch, err := Rows(ir.Record())
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	if err := ir.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("attnexport: read stream: %w", err)
	}
	return rows, nil
}
